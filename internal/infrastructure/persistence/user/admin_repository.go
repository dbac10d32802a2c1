// Package user provides the flat-file implementation of the admin account
// repository.
package user

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mayanov/tarotsite-go/internal/domain/user"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

var csvHeader = []string{"email", "password_hash"}

// CSVAdminRepository stores admin accounts in an "email,password_hash" CSV file.
// The file is re-read on every call so edits made by the manage-users command
// are picked up without a restart.
type CSVAdminRepository struct {
	path   string
	mu     sync.Mutex
	logger *logging.ChanneledLogger
}

// NewCSVAdminRepository creates a repository backed by path. The file does not
// need to exist yet.
func NewCSVAdminRepository(path string, logger *logging.ChanneledLogger) *CSVAdminRepository {
	return &CSVAdminRepository{path: path, logger: logger}
}

// FindByEmail returns the account for email or user.ErrUserNotFound.
func (r *CSVAdminRepository) FindByEmail(email string) (*user.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return nil, err
	}
	if i := indexOf(users, email); i >= 0 {
		return users[i], nil
	}
	return nil, user.ErrUserNotFound
}

// List returns every account in file order.
func (r *CSVAdminRepository) List() ([]*user.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Add appends a new account; user.ErrUserExists if the email is taken.
func (r *CSVAdminRepository) Add(u *user.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	if indexOf(users, u.Email) >= 0 {
		return user.ErrUserExists
	}
	return r.save(append(users, u))
}

// Upsert adds the account or replaces the stored hash of an existing one.
func (r *CSVAdminRepository) Upsert(u *user.AdminUser) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return false, err
	}
	if i := indexOf(users, u.Email); i >= 0 {
		users[i] = u
		return false, r.save(users)
	}
	return true, r.save(append(users, u))
}

// DeleteUnlessLast removes the account for email. It returns user.ErrLastUser
// when at most one account is stored and user.ErrUserNotFound if email is absent.
func (r *CSVAdminRepository) DeleteUnlessLast(email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	if len(users) <= 1 {
		return user.ErrLastUser
	}
	i := indexOf(users, email)
	if i < 0 {
		return user.ErrUserNotFound
	}
	return r.save(append(users[:i], users[i+1:]...))
}

func (r *CSVAdminRepository) load() ([]*user.AdminUser, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*user.AdminUser{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open admin users file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	users := []*user.AdminUser{}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read admin users file: %w", err)
		}
		if line == 1 && len(record) > 0 && strings.TrimSpace(record[0]) == csvHeader[0] {
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			r.logger.Auth().Warn("Skipping malformed admin users row", "line", line)
			continue
		}
		users = append(users, &user.AdminUser{
			Email:        strings.TrimSpace(record[0]),
			PasswordHash: strings.TrimSpace(record[1]),
		})
	}
	return users, nil
}

func (r *CSVAdminRepository) save(users []*user.AdminUser) error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create admin users directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".admin_users-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp admin users file: %w", err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write admin users header: %w", err)
	}
	for _, u := range users {
		if err := writer.Write([]string{u.Email, u.PasswordHash}); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write admin user: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush admin users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close admin users file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to chmod admin users file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace admin users file: %w", err)
	}
	return nil
}

func indexOf(users []*user.AdminUser, email string) int {
	email = strings.TrimSpace(email)
	for i, u := range users {
		if u.Email == email {
			return i
		}
	}
	return -1
}
