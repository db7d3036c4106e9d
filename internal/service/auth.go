package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/task-tracker/internal/model"
	"github.com/iliyamo/task-tracker/internal/queue"
	"github.com/iliyamo/task-tracker/internal/repository"
	"github.com/iliyamo/task-tracker/internal/utils"
)

// RememberMeTTL is the session lifetime granted when login asks to be
// remembered.
const RememberMeTTL = 30 * 24 * time.Hour

// AuthResult is returned by Register and Login.
type AuthResult struct {
	AccessToken string            `json:"accessToken"`
	ExpiresAt   time.Time         `json:"-"`
	User        model.UserSummary `json:"user"`
}

// AuthService orchestrates registration, login and identity lookup.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	events queue.Publisher
}

func NewAuthService(users UserStore, tokens TokenIssuer, events queue.Publisher) *AuthService {
	if events == nil {
		events = queue.Noop{}
	}
	return &AuthService{users: users, tokens: tokens, events: events}
}

// Register creates an account and signs the user in with the default
// session lifetime.  Nothing is persisted when the passwords differ.
func (s *AuthService) Register(ctx context.Context, email, password, confirmPassword string) (*AuthResult, error) {
	if password != confirmPassword {
		return nil, ErrPasswordMismatch
	}
	u, err := s.users.Create(ctx, email, password)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	tok, err := s.tokens.IssueDefault(u.ID, u.Email)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.events, queue.Event{Type: queue.UserRegistered, UserID: u.ID, Email: u.Email})
	return &AuthResult{AccessToken: tok.Token, ExpiresAt: tok.Exp, User: u.Summary()}, nil
}

// Login verifies credentials.  An unknown email and a wrong password yield
// the same ErrInvalidCredentials, and both pay for a bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.users.DummyVerify(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !s.users.VerifyPassword(u, password) {
		return nil, ErrInvalidCredentials
	}

	var tok utils.AccessToken
	if rememberMe {
		tok, err = s.tokens.Issue(u.ID, u.Email, RememberMeTTL)
	} else {
		tok, err = s.tokens.IssueDefault(u.ID, u.Email)
	}
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: tok.Token, ExpiresAt: tok.Exp, User: u.Summary()}, nil
}

// ValidateUser looks a user up by id.  A missing user is reported as
// (nil, nil) so the session middleware decides how to reject; only store
// failures are errors.
func (s *AuthService) ValidateUser(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
