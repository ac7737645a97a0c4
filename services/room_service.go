package services

import (
	"log/slog"
	"roomchat/auth"
	"roomchat/contract"
	"roomchat/domain"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type IRoomService interface {
	Create(draft domain.RoomDraft, creator domain.User) (domain.Room, error)
	List(skip, limit int) ([]domain.Room, error)
	Update(id domain.RoomID, draft domain.RoomDraft) (domain.Room, error)
	Delete(id domain.RoomID) error
	Members(id domain.RoomID) ([]domain.Membership, error)
}

type RoomService struct {
	rooms contract.IRoomRepository
	log   *slog.Logger
}

func NewRoomService(rooms contract.IRoomRepository, log *slog.Logger) *RoomService {
	return &RoomService{rooms: rooms, log: log}
}

func (s *RoomService) Create(draft domain.RoomDraft, creator domain.User) (domain.Room, error) {
	if err := auth.Validate(draft); err != nil {
		return domain.Room{}, err
	}
	room, err := s.rooms.CreateRoom(draft, creator.ID)
	if err != nil {
		return domain.Room{}, err
	}
	s.log.Info("Room created", "room_id", room.ID, "name", room.Name, "created_by", creator.Username)
	return room, nil
}

func (s *RoomService) List(skip, limit int) ([]domain.Room, error) {
	skip, limit = Page(skip, limit)
	return s.rooms.ListRooms(skip, limit)
}

func (s *RoomService) Update(id domain.RoomID, draft domain.RoomDraft) (domain.Room, error) {
	if err := auth.Validate(draft); err != nil {
		return domain.Room{}, err
	}
	return s.rooms.UpdateRoom(id, draft)
}

// Delete removes the room with its members and message history.
// Connections still open on it stay open until they disconnect.
func (s *RoomService) Delete(id domain.RoomID) error {
	if err := s.rooms.DeleteRoom(id); err != nil {
		return err
	}
	s.log.Info("Room deleted", "room_id", id)
	return nil
}

// Members lists who has ever joined the room. An unknown room is ErrNotFound.
func (s *RoomService) Members(id domain.RoomID) ([]domain.Membership, error) {
	if _, err := s.rooms.GetRoom(id); err != nil {
		return nil, err
	}
	return s.rooms.ListMembers(id)
}

// Page clamps pagination parameters to sane bounds.
func Page(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return skip, limit
}
