package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

const strongPassword = "Str0ng!Passw0rd"

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store  *repository.MemoryStore
	issuer *utils.SessionIssuer
	events *recordingPublisher
	auth   *AuthService
	tasks  *TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore(4)
	issuer := utils.NewSessionIssuer("test-secret", 24*time.Hour).WithClock(func() time.Time { return testNow })
	events := &recordingPublisher{}
	return &fixture{
		store:  store,
		issuer: issuer,
		events: events,
		auth:   NewAuthService(store.Users(), issuer, events),
		tasks:  NewTaskService(store.Tasks(), events),
	}
}

func TestRegister_PasswordMismatchCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "a@example.com", strongPassword, strongPassword+"x")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = f.store.Users().GetByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Empty(t, f.events.types())
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, "a@example.com", strongPassword, strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", reg.User.Email)
	assert.Equal(t, testNow.Add(24*time.Hour), reg.ExpiresAt)

	login, err := f.auth.Login(ctx, "a@example.com", strongPassword, false)
	require.NoError(t, err)
	claims, err := f.issuer.Verify(login.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, id)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, []string{queue.UserRegistered}, f.events.types())
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "a@example.com", strongPassword, strongPassword)
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, "A@example.com", strongPassword, strongPassword)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "a@example.com", strongPassword, strongPassword)
	require.NoError(t, err)

	_, errUnknown := f.auth.Login(ctx, "nobody@example.com", strongPassword, false)
	_, errWrong := f.auth.Login(ctx, "a@example.com", "Wr0ng!Password", false)
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLogin_RememberMeExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, "a@example.com", strongPassword, strongPassword)
	require.NoError(t, err)

	remembered, err := f.auth.Login(ctx, "a@example.com", strongPassword, true)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*24*time.Hour), remembered.ExpiresAt)
	claims, err := f.issuer.Verify(remembered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(30*24*time.Hour), claims.ExpiresAt.Time.UTC())

	plain, err := f.auth.Login(ctx, "a@example.com", strongPassword, false)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(f.issuer.DefaultTTL()), plain.ExpiresAt)
}

func TestValidateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.auth.Register(ctx, "a@example.com", strongPassword, strongPassword)
	require.NoError(t, err)

	u, err := f.auth.ValidateUser(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a@example.com", u.Email)

	missing, err := f.auth.ValidateUser(ctx, reg.User.ID+1)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTaskCreate_DefaultsAndOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	task, err := f.tasks.Create(ctx, CreateTaskInput{Title: "Write report", Description: "Q3", DueDate: due}, 1)
	require.NoError(t, err)
	assert.NotZero(t, task.ID)
	assert.Equal(t, model.StatusToDo, task.Status)
	assert.Equal(t, uint64(1), task.UserID)
	assert.False(t, task.CreatedAt.IsZero())

	mine, err := f.tasks.FindAll(ctx, 1, ListTasksInput{Status: "To Do"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, task.ID, mine[0].ID)

	theirs, err := f.tasks.FindAll(ctx, 2, ListTasksInput{Status: "To Do"})
	require.NoError(t, err)
	assert.NotNil(t, theirs)
	assert.Empty(t, theirs)

	_, err = f.tasks.Create(ctx, CreateTaskInput{Title: "x", Status: "Done"}, 1)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = f.tasks.FindAll(ctx, 1, ListTasksInput{Status: "Done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTaskFindAll_BogusSortFallsBackToNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []uint64
	for _, title := range []string{"c", "a", "b"} {
		task, err := f.tasks.Create(ctx, CreateTaskInput{Title: title}, 1)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	list, err := f.tasks.FindAll(ctx, 1, ListTasksInput{SortBy: "bogusField", SortOrder: "ASC"})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uint64{ids[2], ids[1], ids[0]}, []uint64{list[0].ID, list[1].ID, list[2].ID})

	byTitle, err := f.tasks.FindAll(ctx, 1, ListTasksInput{SortBy: "title", SortOrder: "DESC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, []string{byTitle[0].Title, byTitle[1].Title, byTitle[2].Title})
}

func TestTaskOtherOwnerSeesNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, err := f.tasks.Create(ctx, CreateTaskInput{Title: "mine"}, 1)
	require.NoError(t, err)

	_, err = f.tasks.FindOne(ctx, task.ID, 2)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	title := "stolen"
	_, err = f.tasks.Update(ctx, task.ID, 2, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, f.tasks.Remove(ctx, task.ID, 2), ErrTaskNotFound)

	still, err := f.tasks.FindOne(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "mine", still.Title)
}

func TestTaskUpdate_PartialFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task, err := f.tasks.Create(ctx, CreateTaskInput{Title: "Write report", Description: "Q3", DueDate: due}, 1)
	require.NoError(t, err)

	completed := model.StatusCompleted
	updated, err := f.tasks.Update(ctx, task.ID, 1, UpdateTaskInput{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Equal(t, "Write report", updated.Title)
	assert.Equal(t, "Q3", updated.Description)
	assert.True(t, due.Equal(updated.DueDate))

	bad := model.TaskStatus("Done")
	_, err = f.tasks.Update(ctx, task.ID, 1, UpdateTaskInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTaskRemove_TwiceIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task, err := f.tasks.Create(ctx, CreateTaskInput{Title: "x"}, 1)
	require.NoError(t, err)

	require.NoError(t, f.tasks.Remove(ctx, task.ID, 1))
	assert.ErrorIs(t, f.tasks.Remove(ctx, task.ID, 1), ErrTaskNotFound)
	assert.Equal(t, []string{queue.TaskCreated, queue.TaskDeleted}, f.events.types())
}

// unscopedStore ignores the owner on lookups, standing in for a store whose
// scoping has been loosened.
type unscopedStore struct {
	TaskStore
	task model.Task
}

func (u *unscopedStore) GetByIDAndOwner(context.Context, uint64, uint64) (*model.Task, error) {
	cp := u.task
	return &cp, nil
}

func TestTaskUpdateAndRemove_ForbiddenWhenStoreLeaksForeignRow(t *testing.T) {
	store := &unscopedStore{task: model.Task{ID: 5, Title: "theirs", UserID: 2, Status: model.StatusToDo}}
	svc := NewTaskService(store, nil)
	ctx := context.Background()

	title := "mine now"
	_, err := svc.Update(ctx, 5, 1, UpdateTaskInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Remove(ctx, 5, 1), ErrForbidden)
}
