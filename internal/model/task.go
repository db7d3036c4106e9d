package model

import (
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Statuses lists the statuses in workflow order, the order of the MySQL
// ENUM declaration.  Sorting by status follows this order, not the
// alphabet.
var Statuses = []TaskStatus{StatusToDo, StatusInProgress, StatusCompleted}

// Rank is the position of s in Statuses; unknown values sort last.
func (s TaskStatus) Rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return len(Statuses)
}

// Task mirrors a row of the `tasks` table.  JSON names match the public API.
type Task struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	DueDate     time.Time  `json:"dueDate"`
	UserID      uint64     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SortField is a column tasks may be ordered by.  Only the values below are
// ever turned into SQL.
type SortField string

const (
	SortByTitle     SortField = "title"
	SortByDueDate   SortField = "dueDate"
	SortByCreatedAt SortField = "createdAt"
	SortByStatus    SortField = "status"
)

var sortColumns = map[SortField]string{
	SortByTitle:     "title",
	SortByDueDate:   "due_date",
	SortByCreatedAt: "created_at",
	SortByStatus:    "status",
}

// Column returns the database column for f and whether f is allowed.
func (f SortField) Column() (string, bool) {
	col, ok := sortColumns[f]
	return col, ok
}

// SortDirection is ASC or DESC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// TaskQuery parameterizes a task listing.  OwnerID is always applied.
type TaskQuery struct {
	OwnerID   uint64
	Status    TaskStatus // empty means any status
	SortField SortField
	SortDir   SortDirection
}

// NewTaskQuery resolves raw sort parameters against the allow-list.  With no
// sortBy, or a sortBy outside the allow-list, the order is createdAt DESC.
// Otherwise the direction is DESC only when sortOrder asks for it.
func NewTaskQuery(ownerID uint64, status TaskStatus, sortBy, sortOrder string) TaskQuery {
	q := TaskQuery{
		OwnerID:   ownerID,
		Status:    status,
		SortField: SortByCreatedAt,
		SortDir:   SortDesc,
	}
	f := SortField(strings.TrimSpace(sortBy))
	if _, ok := f.Column(); ok {
		q.SortField = f
		q.SortDir = SortAsc
		if strings.EqualFold(strings.TrimSpace(sortOrder), string(SortDesc)) {
			q.SortDir = SortDesc
		}
	}
	return q
}
