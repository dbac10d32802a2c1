package services

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayanov/tarotsite-go/internal/domain/user"
	userstore "github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/user"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
)

func newAuthService(t *testing.T, mailer *fakeMailer) *AuthService {
	t.Helper()
	repo := userstore.NewCSVAdminRepository(filepath.Join(t.TempDir(), "admin_users.csv"), testLogger())
	if mailer == nil {
		return NewAuthService(testLogger(), testPerf(), repo, nil, "test-secret", time.Hour)
	}
	return NewAuthService(testLogger(), testPerf(), repo, mailer, "test-secret", time.Hour)
}

func TestLogin(t *testing.T) {
	svc := newAuthService(t, nil)
	_, err := svc.UpsertUser("owner@example.com", "hunter22")
	require.NoError(t, err)

	result, err := svc.Login("owner@example.com", "hunter22")
	require.NoError(t, err)
	assert.True(t, result.Success)

	email, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", email)

	_, err = svc.Login("owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("", "hunter22")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := newAuthService(t, nil)

	_, err := svc.ValidateToken("")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	other, err := security.GenerateAdminToken("owner@example.com", "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(other)
	assert.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestAddUser_SendsWelcome(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newAuthService(t, mailer)

	require.NoError(t, svc.AddUser("owner@example.com", "new@example.com", "s3cret"))
	assert.Equal(t, []string{"new@example.com"}, mailer.sent)
	assert.ErrorIs(t, svc.AddUser("owner@example.com", "new@example.com", "again"), user.ErrUserExists)
	assert.ErrorIs(t, svc.AddUser("owner@example.com", "x@example.com", ""), ErrMissingFields)

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, users)
}

func TestAddUser_MailFailureDoesNotFail(t *testing.T) {
	svc := newAuthService(t, &fakeMailer{err: errors.New("resend down")})
	assert.NoError(t, svc.AddUser("owner@example.com", "new@example.com", "s3cret"))
}

func TestDeleteUser(t *testing.T) {
	svc := newAuthService(t, nil)
	_, err := svc.UpsertUser("owner@example.com", "pw")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteUser("owner@example.com", "owner@example.com"), ErrSelfDelete)
	assert.ErrorIs(t, svc.DeleteUser("other@example.com", "owner@example.com"), ErrLastAdmin)

	_, err = svc.UpsertUser("second@example.com", "pw")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteUser("owner@example.com", "ghost@example.com"), user.ErrUserNotFound)
	require.NoError(t, svc.DeleteUser("owner@example.com", "second@example.com"))

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.com"}, users)
}

func TestDeleteUser_MutualDeletesKeepOneAdmin(t *testing.T) {
	svc := newAuthService(t, nil)
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := svc.UpsertUser(email, "pw")
		require.NoError(t, err)
	}

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, pair := range [][2]string{{"a@example.com", "b@example.com"}, {"b@example.com", "a@example.com"}} {
		wg.Add(1)
		go func(i int, actor, target string) {
			defer wg.Done()
			<-start
			errs[i] = svc.DeleteUser(actor, target)
		}(i, pair[0], pair[1])
	}
	close(start)
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrLastAdmin)
		}
	}
	assert.Equal(t, 1, succeeded)

	users, err := svc.ListUsers()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUpsertUser_ResetsPassword(t *testing.T) {
	svc := newAuthService(t, nil)

	created, err := svc.UpsertUser("owner@example.com", "first")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.UpsertUser("owner@example.com", "second")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Login("owner@example.com", "first")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("owner@example.com", "second")
	assert.NoError(t, err)
}
