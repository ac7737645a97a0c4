package services

import (
	"fmt"
	"log/slog"
	"roomchat/auth"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/errors"
)

type IAuthService interface {
	Signup(req auth.SignupRequest) (domain.User, error)
	AdminSignup(req auth.SignupRequest) (domain.User, error)
	Login(username, password string) (Token, error)
}

type AuthService struct {
	users  contract.IUserRepository
	tokens *auth.TokenManager
	log    *slog.Logger
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(users contract.IUserRepository, tokens *auth.TokenManager, log *slog.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, log: log}
}

// Signup creates a regular user account.
func (s *AuthService) Signup(req auth.SignupRequest) (domain.User, error) {
	return s.register(req, domain.RoleUser)
}

// AdminSignup creates an administrator account.
func (s *AuthService) AdminSignup(req auth.SignupRequest) (domain.User, error) {
	return s.register(req, domain.RoleAdmin)
}

func (s *AuthService) register(req auth.SignupRequest, role domain.Role) (domain.User, error) {
	// Validation runs before any expensive hashing.
	if err := auth.ValidateSignup(req); err != nil {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("User registered", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// Login checks credentials and issues an access token. Unknown users and
// wrong passwords fail the same way.
func (s *AuthService) Login(username, password string) (Token, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", errors.ErrInvalidCredentials
		}
		return "", fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.Username, user.Role)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}
