package repository

import (
	"context"      // context carries request cancellation into every query
	"database/sql" // sql provides the MySQL connection pool
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/task-tracker/internal/model"
)

// TaskRepo encapsulates all database queries related to tasks.  Every read
// and write is scoped to an owner in the WHERE clause so that rows of other
// users are never touched or revealed.
type TaskRepo struct {
	db *sql.DB
}

// NewTaskRepo constructs a TaskRepo with the provided DB handle.
func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

const taskColumns = "id, title, description, status, due_date, user_id, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (*model.Task, error) {
	var (
		t      model.Task
		status string
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &status, &t.DueDate, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	return &t, nil
}

// Create inserts a new task.  On success the task's ID and timestamps are
// populated from a follow-up SELECT so callers receive the stored record.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	const qInsert = "INSERT INTO tasks (title, description, status, due_date, user_id) VALUES (?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, t.Title, t.Description, string(t.Status), t.DueDate, t.UserID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByIDAndOwner(ctx, uint64(id), t.UserID)
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

// List returns the owner's tasks filtered and ordered per q.  The sort column
// comes from the SortField allow-list, never from raw input.
func (r *TaskRepo) List(ctx context.Context, q model.TaskQuery) ([]model.Task, error) {
	where := []string{"user_id = ?"}
	args := []any{q.OwnerID}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}

	col, ok := q.SortField.Column()
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if q.SortDir == model.SortDesc {
		dir = "DESC"
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE " + strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIDAndOwner fetches a task by id but only if it belongs to the
// specified owner.  If the task doesn't exist or is owned by someone
// else, ErrTaskNotFound is returned.
func (r *TaskRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Task, error) {
	const q = "SELECT " + taskColumns + " FROM tasks WHERE id = ? AND user_id = ?"
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// Update writes the mutable fields of t and refreshes it from the database.
// It returns ErrTaskNotFound when no row matches t.ID and t.UserID.
func (r *TaskRepo) Update(ctx context.Context, t *model.Task) error {
	const q = `UPDATE tasks
	           SET title = ?, description = ?, status = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP(3)
	           WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, t.Title, t.Description, string(t.Status), t.DueDate, t.ID, t.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows for a no-op update as well, so look
		// the row up before calling it missing.
		if _, err := r.GetByIDAndOwner(ctx, t.ID, t.UserID); err != nil {
			return err
		}
	}
	stored, err := r.GetByIDAndOwner(ctx, t.ID, t.UserID)
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

// Delete removes the task if it belongs to ownerID.
func (r *TaskRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND user_id = ?", id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
