// Package repository defines the user and task stores and the error values
// they share.  Three backends implement the same contracts: MySQL through
// database/sql, PostgreSQL (or SQLite) through gorm, and an in-process
// memory store.  Handlers and services compare errors with errors.Is.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering an email that is already
// taken.  Handlers should translate this into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned by user lookups that match no row.
var ErrUserNotFound = errors.New("user not found")

// ErrTaskNotFound is returned when no task matches an id+owner pair.  A task
// owned by someone else is reported the same way as a missing one.
var ErrTaskNotFound = errors.New("task not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
