package user

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mayanov/tarotsite-go/internal/domain/user"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

func newRepository(t *testing.T) (*CSVAdminRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "admin_users.csv")
	return NewCSVAdminRepository(path, logging.NewDiscardLogger()), path
}

func TestMissingFileIsEmpty(t *testing.T) {
	repo, _ := newRepository(t)

	users, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = repo.FindByEmail("a@example.com")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestAddFindDelete(t *testing.T) {
	repo, path := newRepository(t)

	require.NoError(t, repo.Add(&user.AdminUser{Email: "a@example.com", PasswordHash: "s1:h1"}))
	require.NoError(t, repo.Add(&user.AdminUser{Email: "b@example.com", PasswordHash: "s2:h2"}))
	assert.ErrorIs(t, repo.Add(&user.AdminUser{Email: "a@example.com", PasswordHash: "x:y"}), user.ErrUserExists)

	found, err := repo.FindByEmail("b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s2:h2", found.PasswordHash)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "email,password_hash\na@example.com,s1:h1\nb@example.com,s2:h2\n", string(data))

	assert.ErrorIs(t, repo.DeleteUnlessLast("ghost@example.com"), user.ErrUserNotFound)
	require.NoError(t, repo.DeleteUnlessLast("a@example.com"))
	assert.ErrorIs(t, repo.DeleteUnlessLast("b@example.com"), user.ErrLastUser)

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "b@example.com", users[0].Email)
}

func TestUpsert(t *testing.T) {
	repo, _ := newRepository(t)

	created, err := repo.Upsert(&user.AdminUser{Email: "a@example.com", PasswordHash: "old:hash"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Upsert(&user.AdminUser{Email: "a@example.com", PasswordHash: "new:hash"})
	require.NoError(t, err)
	assert.False(t, created)

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "new:hash", users[0].PasswordHash)
}

func TestReadsHandWrittenFile(t *testing.T) {
	repo, path := newRepository(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	content := "email,password_hash\n admin@example.com , abc:def \n\nbroken-row\nother@example.com,123:456"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	users, err := repo.List()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin@example.com", users[0].Email)
	assert.Equal(t, "abc:def", users[0].PasswordHash)
	assert.Equal(t, "other@example.com", users[1].Email)
}

func TestDeleteUnlessLast_ConcurrentDeletesKeepOneAccount(t *testing.T) {
	repo, _ := newRepository(t)
	require.NoError(t, repo.Add(&user.AdminUser{Email: "a@example.com", PasswordHash: "s1:h1"}))
	require.NoError(t, repo.Add(&user.AdminUser{Email: "b@example.com", PasswordHash: "s2:h2"}))

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, email := range []string{"a@example.com", "b@example.com"} {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			<-start
			errs[i] = repo.DeleteUnlessLast(email)
		}(i, email)
	}
	close(start)
	wg.Wait()

	var deleted int
	for _, err := range errs {
		if err == nil {
			deleted++
		} else {
			assert.ErrorIs(t, err, user.ErrLastUser)
		}
	}
	assert.Equal(t, 1, deleted)

	users, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
