package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/service"
)

// TaskWorkflow is what the task endpoints need from service.TaskService.
type TaskWorkflow interface {
	Create(ctx context.Context, in service.CreateTaskInput, ownerID uint64) (*model.Task, error)
	FindAll(ctx context.Context, ownerID uint64, in service.ListTasksInput) ([]model.Task, error)
	FindOne(ctx context.Context, id, ownerID uint64) (*model.Task, error)
	Update(ctx context.Context, id, ownerID uint64, in service.UpdateTaskInput) (*model.Task, error)
	Remove(ctx context.Context, id, ownerID uint64) error
}

// TaskHandler serves the owner-scoped /tasks endpoints.
type TaskHandler struct {
	Tasks TaskWorkflow
}

func NewTaskHandler(tasks TaskWorkflow) *TaskHandler {
	return &TaskHandler{Tasks: tasks}
}

type createTaskReq struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description"`
	Status      *string `json:"status"`
	DueDate     string  `json:"dueDate" validate:"required"`
}

type updateTaskReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
}

var errInvalidDueDate = errors.New("dueDate must be an RFC 3339 timestamp or YYYY-MM-DD")

// parseDueDate accepts RFC 3339 timestamps and bare YYYY-MM-DD dates
// (midnight UTC).
func parseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidDueDate
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createTaskReq
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err)
	}
	due, err := parseDueDate(req.DueDate)
	if err != nil {
		return badRequest(c, err)
	}
	in := service.CreateTaskInput{Title: req.Title, Description: req.Description, DueDate: due}
	if req.Status != nil {
		in.Status = model.TaskStatus(*req.Status)
		if !in.Status.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": service.ErrInvalidStatus.Error()})
		}
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	task, err := h.Tasks.Create(ctx, in, ownerID)
	if err != nil {
		return h.taskError(c, "create task", err)
	}
	return c.JSON(http.StatusCreated, task)
}

// List handles GET /tasks?status=&sortBy=&sortOrder=.
func (h *TaskHandler) List(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tasks, err := h.Tasks.FindAll(ctx, ownerID, service.ListTasksInput{
		Status:    c.QueryParam("status"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	})
	if err != nil {
		return h.taskError(c, "list tasks", err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// Get handles GET /tasks/:id.
func (h *TaskHandler) Get(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	task, err := h.Tasks.FindOne(ctx, id, ownerID)
	if err != nil {
		return h.taskError(c, "get task", err)
	}
	return c.JSON(http.StatusOK, task)
}

// Update handles PUT /tasks/:id.  Only the fields present in the body change.
func (h *TaskHandler) Update(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateTaskReq
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err)
	}
	in := service.UpdateTaskInput{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		st := model.TaskStatus(*req.Status)
		in.Status = &st
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return badRequest(c, err)
		}
		in.DueDate = &due
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	task, err := h.Tasks.Update(ctx, id, ownerID, in)
	if err != nil {
		return h.taskError(c, "update task", err)
	}
	return c.JSON(http.StatusOK, task)
}

// Delete handles DELETE /tasks/:id.
func (h *TaskHandler) Delete(c echo.Context) error {
	ownerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Tasks.Remove(ctx, id, ownerID); err != nil {
		return h.taskError(c, "delete task", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TaskHandler) taskError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrTaskNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return internalError(c, op, err)
	}
}
