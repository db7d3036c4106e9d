//go:build cgo

package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iliyamo/task-tracker/internal/model"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tasks.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func TestGormTasks_StatusSortFollowsWorkflowOrder(t *testing.T) {
	db := openSQLite(t)
	tasks := NewGormTaskRepo(db)
	ctx := context.Background()

	var created []uint64
	for _, st := range []model.TaskStatus{model.StatusCompleted, model.StatusToDo, model.StatusInProgress} {
		tk := &model.Task{Title: string(st), Status: st, UserID: 1}
		require.NoError(t, tasks.Create(ctx, tk))
		created = append(created, tk.ID)
	}
	completed, todo, inProgress := created[0], created[1], created[2]

	list, err := tasks.List(ctx, model.NewTaskQuery(1, "", "status", "ASC"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{todo, inProgress, completed}, ids(list))

	list, err = tasks.List(ctx, model.NewTaskQuery(1, "", "status", "DESC"))
	require.NoError(t, err)
	assert.Equal(t, []uint64{completed, inProgress, todo}, ids(list))
}

func TestGormRepos_RoundTrip(t *testing.T) {
	db := openSQLite(t)
	users := NewGormUserRepo(db, 4)
	tasks := NewGormTaskRepo(db)
	ctx := context.Background()

	owner, err := users.Create(ctx, "Owner@Example.com", "Passw0rd!xx")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", owner.Email)

	_, err = users.Create(ctx, "owner@example.com", "Passw0rd!xx")
	assert.ErrorIs(t, err, ErrEmailExists)

	found, err := users.GetByEmail(ctx, "OWNER@example.com")
	require.NoError(t, err)
	assert.True(t, users.VerifyPassword(found, "Passw0rd!xx"))

	_, err = users.GetByID(ctx, owner.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)

	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &model.Task{Title: "b-first", Description: "Q3", Status: model.StatusToDo, DueDate: due, UserID: owner.ID}
	require.NoError(t, tasks.Create(ctx, first))
	require.NotZero(t, first.ID)
	second := &model.Task{Title: "a-second", Status: model.StatusCompleted, DueDate: due, UserID: owner.ID}
	require.NoError(t, tasks.Create(ctx, second))

	byTitle, err := tasks.List(ctx, model.NewTaskQuery(owner.ID, "", "title", "ASC"))
	require.NoError(t, err)
	require.Len(t, byTitle, 2)
	assert.Equal(t, second.ID, byTitle[0].ID)

	todo, err := tasks.List(ctx, model.NewTaskQuery(owner.ID, model.StatusToDo, "", ""))
	require.NoError(t, err)
	require.Len(t, todo, 1)
	assert.Equal(t, first.ID, todo[0].ID)

	none, err := tasks.List(ctx, model.NewTaskQuery(owner.ID+1, "", "", ""))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = tasks.GetByIDAndOwner(ctx, first.ID, owner.ID+1)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	first.Status = model.StatusInProgress
	require.NoError(t, tasks.Update(ctx, first))
	got, err := tasks.GetByIDAndOwner(ctx, first.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, "Q3", got.Description)

	require.NoError(t, tasks.Delete(ctx, first.ID, owner.ID))
	assert.ErrorIs(t, tasks.Delete(ctx, first.ID, owner.ID), ErrTaskNotFound)
}
