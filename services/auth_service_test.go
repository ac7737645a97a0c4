package services

import (
	"fmt"
	"log/slog"
	"roomchat/auth"
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/mocks"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "test-secret"

func newAuthService(t *testing.T) (*AuthService, *mocks.MockIUserRepository, *auth.TokenManager) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenManager(secret, time.Hour)
	return NewAuthService(users, tokens, logs.GetLoggerFromLevel(slog.LevelDebug)), users, tokens
}

func TestAuthService_Signup(t *testing.T) {
	t.Run("should register a regular user when input is valid", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)

		// Expect CreateUser with a hashed password, never the plain one
		users.EXPECT().
			CreateUser(gomock.Any()).
			DoAndReturn(func(u domain.User) (domain.User, error) {
				req.Equal("alice", u.Username)
				req.Equal(domain.RoleUser, u.Role)
				req.NotEqual("Secret123!", u.PasswordHash)
				ok, err := auth.ComparePassword("Secret123!", u.PasswordHash)
				req.NoError(err)
				req.True(ok)
				u.ID = 1
				return u, nil
			}).
			Times(1)

		user, err := svc.Signup(auth.SignupRequest{Username: "alice", Email: "alice@example.com", Password: "Secret123!"})

		req.NoError(err)
		req.Equal(domain.UserID(1), user.ID)
	})

	t.Run("should register an admin through admin signup", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)

		users.EXPECT().
			CreateUser(gomock.Any()).
			DoAndReturn(func(u domain.User) (domain.User, error) { return u, nil })

		user, err := svc.AdminSignup(auth.SignupRequest{Username: "root", Email: "root@example.com", Password: "Secret123!"})

		req.NoError(err)
		req.Equal(domain.RoleAdmin, user.Role)
	})

	t.Run("should fail validation without touching the repository", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)
		users.EXPECT().CreateUser(gomock.Any()).Times(0)

		_, err := svc.Signup(auth.SignupRequest{Username: "al", Email: "not-an-email", Password: "short"})

		req.ErrorIs(err, errors.ErrValidation)
	})

	t.Run("should propagate duplicate usernames", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)
		users.EXPECT().
			CreateUser(gomock.Any()).
			Return(domain.User{}, fmt.Errorf("username alice: %w", errors.ErrAlreadyExists))

		_, err := svc.Signup(auth.SignupRequest{Username: "alice", Email: "alice@example.com", Password: "Secret123!"})

		req.ErrorIs(err, errors.ErrAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Run("should issue a token whose subject is the username", func(t *testing.T) {
		req := require.New(t)
		svc, users, tokens := newAuthService(t)
		hash, err := auth.HashPassword("Secret123!")
		req.NoError(err)

		users.EXPECT().
			GetUserByUsername("alice").
			Return(domain.User{ID: 1, Username: "alice", PasswordHash: hash, Role: domain.RoleUser}, nil)

		token, err := svc.Login("alice", "Secret123!")
		req.NoError(err)

		subject, err := tokens.Verify(token.String())
		req.NoError(err)
		req.Equal("alice", subject)
	})

	t.Run("should return invalid credentials on wrong password", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)
		hash, _ := auth.HashPassword("Correct123!")
		users.EXPECT().GetUserByUsername("alice").Return(domain.User{Username: "alice", PasswordHash: hash}, nil)

		_, err := svc.Login("alice", "Wrong123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials for unknown users", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)
		users.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrNotFound)

		_, err := svc.Login("ghost", "anything")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should surface storage failures as persistence errors", func(t *testing.T) {
		req := require.New(t)
		svc, users, _ := newAuthService(t)
		users.EXPECT().GetUserByUsername("alice").Return(domain.User{}, fmt.Errorf("io error"))

		_, err := svc.Login("alice", "Secret123!")

		req.ErrorIs(err, errors.ErrPersistence)
	})
}
