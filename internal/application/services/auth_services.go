// Package services provides application-level orchestration services
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/user"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/email"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
)

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrLastAdmin          = errors.New("cannot delete the only admin user")
)

// AuthService handles admin authentication workflows and JWT operations
type AuthService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	users       user.AdminRepository
	mailer      email.Service
	jwtSecret   string
	tokenTTL    time.Duration
}

// NewAuthService creates a new authentication service. mailer may be nil.
func NewAuthService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker, users user.AdminRepository,
	mailer email.Service, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		logger:      logger,
		perfTracker: perfTracker,
		users:       users,
		mailer:      mailer,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
	}
}

// AuthResult holds authentication result data
type AuthResult struct {
	Token   string `json:"token"`
	Email   string `json:"email"`
	Success bool   `json:"success"`
}

// Login validates admin credentials and issues a JWT
func (a *AuthService) Login(emailAddr, password string) (*AuthResult, error) {
	marker := a.perfTracker.StartOperation("admin_login", "")
	defer marker.Complete()

	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return nil, ErrMissingFields
	}

	account, err := a.users.FindByEmail(emailAddr)
	if errors.Is(err, user.ErrUserNotFound) {
		a.logger.LogAuthOperation("login", emailAddr, false)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin user: %w", err)
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		a.logger.Auth().Error("Stored password hash is unreadable", "error", err.Error())
		return nil, ErrInvalidCredentials
	}
	if !ok {
		a.logger.LogAuthOperation("login", emailAddr, false)
		return nil, ErrInvalidCredentials
	}

	token, err := security.GenerateAdminToken(account.Email, a.jwtSecret, a.tokenTTL)
	if err != nil {
		return nil, err
	}

	a.logger.LogAuthOperation("login", emailAddr, true)
	marker.SetSuccess(true)
	return &AuthResult{Token: token, Email: account.Email, Success: true}, nil
}

// ValidateToken returns the admin email carried by a valid token
func (a *AuthService) ValidateToken(token string) (string, error) {
	if token == "" {
		return "", security.ErrInvalidToken
	}
	claims, err := security.ValidateJWT(token, a.jwtSecret)
	if err != nil {
		return "", err
	}
	emailAddr, ok := security.EmailFromClaims(claims)
	if !ok {
		return "", security.ErrInvalidToken
	}
	return emailAddr, nil
}

// TokenTTL is the lifetime of issued tokens.
func (a *AuthService) TokenTTL() time.Duration {
	return a.tokenTTL
}

// ListUsers returns the registered admin emails
func (a *AuthService) ListUsers() ([]string, error) {
	accounts, err := a.users.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}
	emails := make([]string, 0, len(accounts))
	for _, account := range accounts {
		emails = append(emails, account.Email)
	}
	return emails, nil
}

// AddUser registers a new admin and sends them a welcome email when mail is configured
func (a *AuthService) AddUser(actor, emailAddr, password string) error {
	marker := a.perfTracker.StartOperation("admin_add_user", "")
	defer marker.Complete()

	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return ErrMissingFields
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	if err := a.users.Add(&user.AdminUser{Email: emailAddr, PasswordHash: hash}); err != nil {
		return err
	}
	a.logger.LogAuthOperation("add_user", emailAddr, true)
	marker.SetSuccess(true)

	if a.mailer != nil {
		if err := a.mailer.SendAdminWelcomeEmail(emailAddr, actor); err != nil {
			a.logger.Auth().Warn("Failed to send admin welcome email", "error", err.Error())
		}
	}
	return nil
}

// UpsertUser creates an admin or resets an existing admin's password
func (a *AuthService) UpsertUser(emailAddr, password string) (bool, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return false, ErrMissingFields
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return false, err
	}
	return a.users.Upsert(&user.AdminUser{Email: emailAddr, PasswordHash: hash})
}

// DeleteUser removes an admin. Admins cannot remove themselves or the last admin.
func (a *AuthService) DeleteUser(actor, emailAddr string) error {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return ErrMissingFields
	}
	if emailAddr == actor {
		return ErrSelfDelete
	}

	err := a.users.DeleteUnlessLast(emailAddr)
	if errors.Is(err, user.ErrLastUser) {
		return ErrLastAdmin
	}
	if err != nil {
		return err
	}
	a.logger.LogAuthOperation("delete_user", emailAddr, true)
	return nil
}
