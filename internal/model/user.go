package model

import "time"

// User represents an application user record as stored in the `users`
// table.  PasswordHash is never serialized; handlers respond with
// UserSummary instead.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (unique, lower-cased)
	PasswordHash string    // users.password_hash (bcrypt)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// UserSummary is the outward view of a user.
type UserSummary struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

// Summary strips everything but id and email.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email}
}
