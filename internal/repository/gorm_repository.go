package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// userRecord and taskRecord are the gorm mappings of the users and tasks
// tables.  They stay private to keep gorm tags out of the model package.
type userRecord struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement"`
	Email        string       `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string       `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Tasks        []taskRecord `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userRecord) TableName() string { return "users" }

type taskRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text;not null"`
	Status      string    `gorm:"size:32;not null;default:'To Do';index:idx_tasks_user_status,priority:2"`
	DueDate     time.Time `gorm:"not null"`
	UserID      uint64    `gorm:"not null;index:idx_tasks_user_status,priority:1"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskRecord) TableName() string { return "tasks" }

// AutoMigrate creates or updates the users and tasks tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{}, &taskRecord{})
}

func (u *userRecord) toModel() *model.User {
	return &model.User{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (t *taskRecord) toModel() model.Task {
	return model.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      model.TaskStatus(t.Status),
		DueDate:     t.DueDate,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func taskRecordFrom(t *model.Task) taskRecord {
	return taskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// GormUserRepo persists users through gorm.  The *gorm.DB should be opened
// with TranslateError enabled so unique violations surface as
// gorm.ErrDuplicatedKey.
type GormUserRepo struct {
	db   *gorm.DB
	cost int
}

func NewGormUserRepo(db *gorm.DB, cost int) *GormUserRepo { return &GormUserRepo{db: db, cost: cost} }

func (r *GormUserRepo) Create(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := utils.HashPassword(password, r.cost)
	if err != nil {
		return nil, err
	}
	rec := userRecord{Email: NormalizeEmail(email), PasswordHash: hash}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *GormUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *GormUserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GormUserRepo) VerifyPassword(u *model.User, plain string) bool {
	return utils.VerifyPassword(u.PasswordHash, plain)
}

func (r *GormUserRepo) DummyVerify(plain string) { utils.DummyVerify(plain, r.cost) }

func (r *GormUserRepo) first(ctx context.Context, cond string, arg any) (*model.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return rec.toModel(), nil
}

// GormTaskRepo persists tasks through gorm with the same owner scoping as
// TaskRepo.
type GormTaskRepo struct {
	db *gorm.DB
}

// statusRankSQL orders the varchar status column in workflow order, matching
// the ENUM ordering of the MySQL schema.
var statusRankSQL = func() string {
	var b strings.Builder
	b.WriteString("CASE status")
	for i, st := range model.Statuses {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", st, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(model.Statuses))
	return b.String()
}()

func NewGormTaskRepo(db *gorm.DB) *GormTaskRepo { return &GormTaskRepo{db: db} }

func (r *GormTaskRepo) Create(ctx context.Context, t *model.Task) error {
	rec := taskRecordFrom(t)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	*t = rec.toModel()
	return nil
}

func (r *GormTaskRepo) List(ctx context.Context, q model.TaskQuery) ([]model.Task, error) {
	tx := r.db.WithContext(ctx).Where("user_id = ?", q.OwnerID)
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	col, ok := q.SortField.Column()
	if !ok {
		col = "created_at"
	}
	desc := q.SortDir == model.SortDesc
	if q.SortField == model.SortByStatus {
		dir := " ASC"
		if desc {
			dir = " DESC"
		}
		tx = tx.Order(statusRankSQL + dir)
	} else {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc})
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})

	var recs []taskRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

func (r *GormTaskRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Task, error) {
	var rec taskRecord
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	t := rec.toModel()
	return &t, nil
}

func (r *GormTaskRepo) Update(ctx context.Context, t *model.Task) error {
	res := r.db.WithContext(ctx).Model(&taskRecord{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Updates(map[string]any{
			"title":       t.Title,
			"description": t.Description,
			"status":      string(t.Status),
			"due_date":    t.DueDate,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	stored, err := r.GetByIDAndOwner(ctx, t.ID, t.UserID)
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

func (r *GormTaskRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, ownerID).Delete(&taskRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
