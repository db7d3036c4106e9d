package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
)

// CreateTaskInput carries the client-supplied fields of a new task.  The
// owner is never part of it.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      model.TaskStatus // empty means To Do
	DueDate     time.Time
}

// UpdateTaskInput is a partial update: nil fields keep their stored value.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	DueDate     *time.Time
}

// ListTasksInput holds the raw listing parameters from the query string.
type ListTasksInput struct {
	Status    string
	SortBy    string
	SortOrder string
}

// TaskService orchestrates owner-scoped task CRUD.
type TaskService struct {
	tasks  TaskStore
	events queue.Publisher
}

func NewTaskService(tasks TaskStore, events queue.Publisher) *TaskService {
	if events == nil {
		events = queue.Noop{}
	}
	return &TaskService{tasks: tasks, events: events}
}

// Create stores a task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, in CreateTaskInput, ownerID uint64) (*model.Task, error) {
	status := in.Status
	if status == "" {
		status = model.StatusToDo
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	t := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		DueDate:     in.DueDate.UTC(),
		UserID:      ownerID,
	}
	if err := s.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.emit(ctx, queue.TaskCreated, t)
	return t, nil
}

// FindAll lists the owner's tasks, optionally filtered by status.  sortBy
// values outside the allow-list fall back to newest first.
func (s *TaskService) FindAll(ctx context.Context, ownerID uint64, in ListTasksInput) ([]model.Task, error) {
	status := model.TaskStatus(in.Status)
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	tasks, err := s.tasks.List(ctx, model.NewTaskQuery(ownerID, status, in.SortBy, in.SortOrder))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// FindOne returns the task only if ownerID owns it.
func (s *TaskService) FindOne(ctx context.Context, id, ownerID uint64) (*model.Task, error) {
	return s.tasks.GetByIDAndOwner(ctx, id, ownerID)
}

// Update applies the non-nil fields of in to the owner's task.
func (s *TaskService) Update(ctx context.Context, id, ownerID uint64, in UpdateTaskInput) (*model.Task, error) {
	t, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate.UTC()
	}
	if err := s.tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	s.emit(ctx, queue.TaskUpdated, t)
	return t, nil
}

// Remove deletes the owner's task.  Removing it again reports
// ErrTaskNotFound.
func (s *TaskService) Remove(ctx context.Context, id, ownerID uint64) error {
	t, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, t.ID, ownerID); err != nil {
		return err
	}
	s.emit(ctx, queue.TaskDeleted, t)
	return nil
}

// loadOwned is FindOne plus an explicit owner comparison.  The lookup is
// already owner-scoped; the comparison keeps a forbidden outcome if a store
// ever returns a foreign row.
func (s *TaskService) loadOwned(ctx context.Context, id, ownerID uint64) (*model.Task, error) {
	t, err := s.FindOne(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if t.UserID != ownerID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *TaskService) emit(ctx context.Context, typ string, t *model.Task) {
	publish(ctx, s.events, queue.Event{
		Type:   typ,
		UserID: t.UserID,
		TaskID: t.ID,
		Title:  t.Title,
		Status: string(t.Status),
	})
}
