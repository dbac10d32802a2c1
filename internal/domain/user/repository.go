// Package user defines the admin account model and its repository contract.
package user

import "errors"

var (
	// ErrUserExists is returned when adding an email that is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when an email is not registered.
	ErrUserNotFound = errors.New("user not found")
	// ErrLastUser is returned when a delete would leave no admin accounts.
	ErrLastUser = errors.New("cannot delete the last admin user")
)

// AdminUser is an account allowed into the admin dashboard.
type AdminUser struct {
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // Never serialize password hash
}

// AdminRepository defines the operations for persisting admin accounts.
type AdminRepository interface {
	FindByEmail(email string) (*AdminUser, error)
	List() ([]*AdminUser, error)
	Add(user *AdminUser) error
	// Upsert adds the user or replaces the hash of an existing one.
	Upsert(user *AdminUser) (created bool, err error)
	// DeleteUnlessLast removes the user unless it is the only account left.
	// The check and the removal are atomic.
	DeleteUnlessLast(email string) error
}
