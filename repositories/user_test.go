package repositories

import (
	"log/slog"
	"roomchat/domain"
	"roomchat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newUserRepository(t *testing.T) *UserRepository {
	t.Helper()
	repository, err := NewUserRepository(openDB(t), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func TestUserRepository_Create_And_Find(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	created, err := repository.CreateUser(domain.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
	})
	req.NoError(err)
	req.Equal(domain.UserID(1), created.ID)
	req.Equal(domain.RoleUser, created.Role)

	byName, err := repository.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal(created, byName)
	req.Equal("hash", byName.PasswordHash)

	byID, err := repository.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal(created, byID)

	_, err = repository.GetUserByUsername("nobody")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repository.GetUserByID(42)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_Unique_Username_And_Email(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	_, err := repository.CreateUser(domain.User{Username: "alice", Email: "alice@example.com"})
	req.NoError(err)

	_, err = repository.CreateUser(domain.User{Username: "alice", Email: "other@example.com"})
	req.ErrorIs(err, errors.ErrAlreadyExists)

	_, err = repository.CreateUser(domain.User{Username: "alice2", Email: "alice@example.com"})
	req.ErrorIs(err, errors.ErrAlreadyExists)
}

func TestUserRepository_List_And_Promote(t *testing.T) {
	req := require.New(t)
	repository := newUserRepository(t)

	for _, name := range []string{"alice", "bob", "clara"} {
		_, err := repository.CreateUser(domain.User{Username: name, Email: name + "@example.com"})
		req.NoError(err)
	}

	users, err := repository.ListUsers(0, 100)
	req.NoError(err)
	req.Len(users, 3)
	req.Equal("alice", users[0].Username)

	page, err := repository.ListUsers(1, 1)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("bob", page[0].Username)

	promoted, err := repository.UpdateRole(users[1].ID, domain.RoleAdmin)
	req.NoError(err)
	req.Equal(domain.RoleAdmin, promoted.Role)

	stored, err := repository.GetUserByUsername("bob")
	req.NoError(err)
	req.Equal(domain.RoleAdmin, stored.Role)

	_, err = repository.UpdateRole(99, domain.RoleAdmin)
	req.ErrorIs(err, errors.ErrNotFound)
}
