//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"roomchat/domain"
)

// Peer is one live connection as seen by the registry.
// Send must not block: a slow or gone peer reports an error instead.
type Peer interface {
	ID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// IRegistry is the single source of truth for who listens to a room right now.
type IRegistry interface {
	Join(roomID domain.RoomID, peer Peer)
	Leave(roomID domain.RoomID, peer Peer)
	Broadcast(roomID domain.RoomID, payload []byte) int
}

// Verifier checks a bearer token and returns its subject.
type Verifier interface {
	Verify(token string) (string, error)
}

type IUserRepository interface {
	CreateUser(user domain.User) (domain.User, error)
	GetUserByUsername(username string) (domain.User, error)
	GetUserByID(id domain.UserID) (domain.User, error)
	ListUsers(skip, limit int) ([]domain.User, error)
	UpdateRole(id domain.UserID, role domain.Role) (domain.User, error)
}

type IRoomRepository interface {
	CreateRoom(draft domain.RoomDraft, createdBy domain.UserID) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	ListRooms(skip, limit int) ([]domain.Room, error)
	UpdateRoom(id domain.RoomID, draft domain.RoomDraft) (domain.Room, error)
	DeleteRoom(id domain.RoomID) error
	AddMember(roomID domain.RoomID, userID domain.UserID) error
	ListMembers(roomID domain.RoomID) ([]domain.Membership, error)
}

type IMessageRepository interface {
	InsertMessage(roomID domain.RoomID, sender domain.User, content string) (domain.Message, error)
	// ListRecentMessages returns at most limit messages, newest first.
	ListRecentMessages(roomID domain.RoomID, limit int) ([]domain.Message, error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself, the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
