package services

import (
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
)

type IAdminService interface {
	ListUsers(skip, limit int) ([]domain.User, error)
	Promote(id domain.UserID) (domain.User, error)
}

type AdminService struct {
	users contract.IUserRepository
	log   *slog.Logger
}

func NewAdminService(users contract.IUserRepository, log *slog.Logger) *AdminService {
	return &AdminService{users: users, log: log}
}

func (s *AdminService) ListUsers(skip, limit int) ([]domain.User, error) {
	skip, limit = Page(skip, limit)
	return s.users.ListUsers(skip, limit)
}

// Promote grants the admin role. Promoting an admin again is a no-op.
func (s *AdminService) Promote(id domain.UserID) (domain.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role == domain.RoleAdmin {
		return user, nil
	}
	user, err = s.users.UpdateRole(id, domain.RoleAdmin)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("User promoted", "user_id", id, "username", user.Username)
	return user, nil
}
