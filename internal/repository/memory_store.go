package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// MemoryStore keeps users and tasks in process memory.  It backs
// DB_DRIVER=memory for local development and the service tests.  Records are
// copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	cost     int
	now      func() time.Time
	nextUser uint64
	nextTask uint64
	users    map[uint64]*model.User
	byEmail  map[string]uint64
	tasks    map[uint64]*model.Task
}

func NewMemoryStore(cost int) *MemoryStore {
	return &MemoryStore{
		cost:    cost,
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[uint64]*model.User),
		byEmail: make(map[string]uint64),
		tasks:   make(map[uint64]*model.Task),
	}
}

// WithClock replaces the store's time source.  Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Users returns the store's user-facing view.
func (s *MemoryStore) Users() *MemoryUsers { return &MemoryUsers{s} }

// Tasks returns the store's task-facing view.
func (s *MemoryStore) Tasks() *MemoryTasks { return &MemoryTasks{s} }

// DeleteUser removes a user and, like the ON DELETE CASCADE of the SQL
// schemas, every task the user owns.
func (s *MemoryStore) DeleteUser(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return
	}
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	for tid, t := range s.tasks {
		if t.UserID == id {
			delete(s.tasks, tid)
		}
	}
}

// MemoryUsers implements the user store contract on a MemoryStore.
type MemoryUsers struct{ s *MemoryStore }

func (m *MemoryUsers) Create(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := utils.HashPassword(password, m.s.cost)
	if err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return nil, ErrEmailExists
	}
	s.nextUser++
	now := s.now()
	u := &model.User{ID: s.nextUser, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	cp := *u
	return &cp, nil
}

func (m *MemoryUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (m *MemoryUsers) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUsers) VerifyPassword(u *model.User, plain string) bool {
	return utils.VerifyPassword(u.PasswordHash, plain)
}

func (m *MemoryUsers) DummyVerify(plain string) { utils.DummyVerify(plain, m.s.cost) }

// MemoryTasks implements the task store contract on a MemoryStore.
type MemoryTasks struct{ s *MemoryStore }

func (m *MemoryTasks) Create(ctx context.Context, t *model.Task) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTask++
	now := s.now()
	cp := *t
	cp.ID = s.nextTask
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.tasks[cp.ID] = &cp
	*t = cp
	return nil
}

func (m *MemoryTasks) List(ctx context.Context, q model.TaskQuery) ([]model.Task, error) {
	s := m.s
	s.mu.RLock()
	out := make([]model.Task, 0)
	for _, t := range s.tasks {
		if t.UserID != q.OwnerID {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		out = append(out, *t)
	}
	s.mu.RUnlock()

	field := q.SortField
	if _, ok := field.Column(); !ok {
		field = model.SortByCreatedAt
	}
	slices.SortFunc(out, func(a, b model.Task) int {
		c := compareTasks(field, a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if q.SortDir == model.SortDesc {
			return -c
		}
		return c
	})
	return out, nil
}

func compareTasks(f model.SortField, a, b model.Task) int {
	switch f {
	case model.SortByTitle:
		return cmp.Compare(a.Title, b.Title)
	case model.SortByDueDate:
		return a.DueDate.Compare(b.DueDate)
	case model.SortByStatus:
		return cmp.Compare(a.Status.Rank(), b.Status.Rank())
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (m *MemoryTasks) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Task, error) {
	s := m.s
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryTasks) Update(ctx context.Context, t *model.Task) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tasks[t.ID]
	if !ok || cur.UserID != t.UserID {
		return ErrTaskNotFound
	}
	cur.Title = t.Title
	cur.Description = t.Description
	cur.Status = t.Status
	cur.DueDate = t.DueDate
	cur.UpdatedAt = s.now()
	*t = *cur
	return nil
}

func (m *MemoryTasks) Delete(ctx context.Context, id, ownerID uint64) error {
	s := m.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.UserID != ownerID {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}
