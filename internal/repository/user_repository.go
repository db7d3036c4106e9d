package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// UserRepo persists users in MySQL.
type UserRepo struct {
	DB   *sql.DB
	cost int
}

// NewUserRepo returns a repo that hashes passwords with the given bcrypt cost.
func NewUserRepo(db *sql.DB, cost int) *UserRepo { return &UserRepo{DB: db, cost: cost} }

const userColumns = "id,email,password_hash,created_at,updated_at"

// NormalizeEmail is applied to every email before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create hashes the password, inserts the user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	hash, err := utils.HashPassword(password, r.cost)
	if err != nil {
		return nil, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash) VALUES (?,?)",
		email, hash)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		NormalizeEmail(email))
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// VerifyPassword compares plain against the user's stored hash.
func (r *UserRepo) VerifyPassword(u *model.User, plain string) bool {
	return utils.VerifyPassword(u.PasswordHash, plain)
}

func (r *UserRepo) DummyVerify(plain string) { utils.DummyVerify(plain, r.cost) }

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
