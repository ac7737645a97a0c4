package auth

import (
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/mocks"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "test-secret-with-enough-entropy"

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "correct horse battery staple"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("wrong password", hash)
	req.NoError(err)
	req.False(match)

	_, err = ComparePassword(password, "not-a-hash")
	req.Error(err)
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     SignupRequest
		wantErr bool
	}{
		{"Valid request", SignupRequest{"alice", "alice@example.com", "password1"}, false},
		{"Invalid email", SignupRequest{"alice", "notanemail", "password1"}, true},
		{"Username too short", SignupRequest{"al", "alice@example.com", "password1"}, true},
		{"Username with spaces", SignupRequest{"al ice", "alice@example.com", "password1"}, true},
		{"Password too short", SignupRequest{"alice", "alice@example.com", "short"}, true},
		{"Password too long", SignupRequest{"alice", "alice@example.com", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateSignup(tt.req)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrValidation)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	req := require.New(t)
	tokens := NewTokenManager(secret, time.Hour)

	token, err := tokens.Generate("alice", domain.RoleUser)
	req.NoError(err)

	subject, err := tokens.Verify(token)
	req.NoError(err)
	req.Equal("alice", subject)
}

func TestTokenManager_Rejects(t *testing.T) {
	t.Run("expired token", func(t *testing.T) {
		req := require.New(t)
		tokens := NewTokenManager(secret, -time.Minute)
		token, err := tokens.Generate("alice", domain.RoleUser)
		req.NoError(err)

		_, err = tokens.Verify(token)
		req.ErrorIs(err, errors.ErrAuthentication)
	})

	t.Run("foreign signature", func(t *testing.T) {
		req := require.New(t)
		token, err := NewTokenManager("another-secret", time.Hour).Generate("alice", domain.RoleUser)
		req.NoError(err)

		_, err = NewTokenManager(secret, time.Hour).Verify(token)
		req.ErrorIs(err, errors.ErrAuthentication)
	})

	t.Run("missing subject", func(t *testing.T) {
		req := require.New(t)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			Role: domain.RoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(secret))
		req.NoError(err)

		_, err = NewTokenManager(secret, time.Hour).Verify(token)
		req.ErrorIs(err, errors.ErrAuthentication)
	})

	t.Run("empty and garbage tokens", func(t *testing.T) {
		req := require.New(t)
		tokens := NewTokenManager(secret, time.Hour)
		_, err := tokens.Verify("")
		req.ErrorIs(err, errors.ErrAuthentication)
		_, err = tokens.Verify("invalid-token-string")
		req.ErrorIs(err, errors.ErrAuthentication)
	})
}

func TestAuthorize(t *testing.T) {
	req := require.New(t)
	req.True(Authorize(domain.User{Role: domain.RoleAdmin}, domain.RoleAdmin))
	req.False(Authorize(domain.User{Role: domain.RoleUser}, domain.RoleAdmin))
	req.True(Authorize(domain.User{Role: domain.RoleUser}, domain.RoleUser))
}

func TestAuthenticator_Authenticate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	verifier := mocks.NewMockVerifier(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)
	authenticator := NewAuthenticator(verifier, users)

	t.Run("should resolve the token subject to a stored user", func(t *testing.T) {
		req := require.New(t)
		alice := domain.User{ID: 1, Username: "alice", Role: domain.RoleUser}
		verifier.EXPECT().Verify("good").Return("alice", nil)
		users.EXPECT().GetUserByUsername("alice").Return(alice, nil)

		user, err := authenticator.Authenticate("good")

		req.NoError(err)
		req.Equal(alice, user)
	})

	t.Run("should fail authentication when the subject is unknown", func(t *testing.T) {
		req := require.New(t)
		verifier.EXPECT().Verify("ghost").Return("ghost", nil)
		users.EXPECT().GetUserByUsername("ghost").Return(domain.User{}, errors.ErrNotFound)

		_, err := authenticator.Authenticate("ghost")

		req.ErrorIs(err, errors.ErrAuthentication)
	})

	t.Run("should never hit storage when the token is invalid", func(t *testing.T) {
		req := require.New(t)
		verifier.EXPECT().Verify("bad").Return("", errors.ErrAuthentication)
		users.EXPECT().GetUserByUsername(gomock.Any()).Times(0)

		_, err := authenticator.Authenticate("bad")

		req.ErrorIs(err, errors.ErrAuthentication)
	})
}
