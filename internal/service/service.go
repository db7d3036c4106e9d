// Package service holds the auth and task workflows.  Workflows depend on
// small store interfaces so the same logic runs over MySQL, gorm or the
// in-memory store; they are constructed once in main and shared by all
// requests.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

var (
	// ErrPasswordMismatch is a validation failure: password and
	// confirmPassword differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidStatus is a validation failure for an unknown task status.
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrTaskNotFound is returned for missing tasks and for tasks owned by
	// someone else.
	ErrTaskNotFound = repository.ErrTaskNotFound
	// ErrForbidden is returned when a loaded task does not belong to the
	// requester.
	ErrForbidden = repository.ErrForbidden
	// ErrEmailExists is returned when registering a taken email.
	ErrEmailExists = repository.ErrEmailExists
)

// UserStore is the persistence contract of the auth workflow.  Create must
// hash the password and enforce email uniqueness (ErrEmailExists).  Lookups
// return repository.ErrUserNotFound when nothing matches.
type UserStore interface {
	Create(ctx context.Context, email, password string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	VerifyPassword(u *model.User, plain string) bool
	// DummyVerify burns one bcrypt comparison at the store's hashing cost.
	DummyVerify(plain string)
}

// TaskStore is the persistence contract of the task workflow.  Every method
// except Create is scoped to an owner and reports repository.ErrTaskNotFound
// when no row matches.
type TaskStore interface {
	Create(ctx context.Context, t *model.Task) error
	List(ctx context.Context, q model.TaskQuery) ([]model.Task, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Task, error)
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uint64, email string, ttl time.Duration) (utils.AccessToken, error)
	IssueDefault(userID uint64, email string) (utils.AccessToken, error)
}

const publishTimeout = 3 * time.Second

// publish sends ev and only logs failures; a broker outage never fails the
// request that produced the event.
func publish(ctx context.Context, p queue.Publisher, ev queue.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, ev.Stamp()); err != nil {
		log.Printf("events: publish %s failed: %v", ev.Type, err)
	}
}
