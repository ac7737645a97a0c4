package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type RoomRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

var _ contract.IRoomRepository = (*RoomRepository)(nil)

func NewRoomRepository(db *badger.DB, log *slog.Logger) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte(roomSequenceKey), sequenceLease)
	if err != nil {
		return nil, fmt.Errorf("room sequence: %w", err)
	}
	return &RoomRepository{db: db, seq: seq, log: log}, nil
}

func (r *RoomRepository) Close() error {
	return r.seq.Release()
}

// CreateRoom persists a room. Room names are unique.
func (r *RoomRepository) CreateRoom(draft domain.RoomDraft, createdBy domain.UserID) (domain.Room, error) {
	id, err := nextID(r.seq)
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{
		ID:          domain.RoomID(id),
		Name:        draft.Name,
		Description: draft.Description,
		CreatedAt:   time.Now().UTC(),
		CreatedBy:   createdBy,
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := ensureFree(txn, roomNameKey(room.Name), "room "+room.Name); err != nil {
			return err
		}
		if err := txn.Set(roomNameKey(room.Name), []byte(strconv.Itoa(id))); err != nil {
			return err
		}
		return setJSON(txn, roomKey(room.ID), room)
	})
	if err != nil {
		return domain.Room{}, err
	}
	r.log.Debug("Room created", "room_id", room.ID, "name", room.Name)
	return room, nil
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, roomKey(id), &room)
	})
	return room, err
}

// ListRooms returns rooms in id order.
func (r *RoomRepository) ListRooms(skip, limit int) ([]domain.Room, error) {
	rooms := make([]domain.Room, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPage(txn, []byte(roomIDPrefix), skip, limit, func(val []byte) error {
			var room domain.Room
			if err := json.Unmarshal(val, &room); err != nil {
				return err
			}
			rooms = append(rooms, room)
			return nil
		})
	})
	return rooms, err
}

// UpdateRoom replaces name and description, keeping the name index in sync.
func (r *RoomRepository) UpdateRoom(id domain.RoomID, draft domain.RoomDraft) (domain.Room, error) {
	var room domain.Room
	err := r.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, roomKey(id), &room); err != nil {
			return err
		}
		if draft.Name != room.Name {
			if err := ensureFree(txn, roomNameKey(draft.Name), "room "+draft.Name); err != nil {
				return err
			}
			if err := txn.Delete(roomNameKey(room.Name)); err != nil {
				return err
			}
			if err := txn.Set(roomNameKey(draft.Name), []byte(strconv.Itoa(int(id)))); err != nil {
				return err
			}
		}
		room.Name = draft.Name
		room.Description = draft.Description
		return setJSON(txn, roomKey(id), room)
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// DeleteRoom removes the room with its messages and memberships.
func (r *RoomRepository) DeleteRoom(id domain.RoomID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		var room domain.Room
		if err := getJSON(txn, roomKey(id), &room); err != nil {
			return err
		}
		if err := txn.Delete(roomNameKey(room.Name)); err != nil {
			return err
		}
		return txn.Delete(roomKey(id))
	})
	if err != nil {
		return err
	}
	if err = deletePrefix(r.db, messagePrefix(id)); err != nil {
		return fmt.Errorf("delete messages of room %d: %w", id, err)
	}
	if err = deletePrefix(r.db, memberPrefix(id)); err != nil {
		return fmt.Errorf("delete members of room %d: %w", id, err)
	}
	r.log.Debug("Room deleted", "room_id", id)
	return nil
}

// AddMember records a membership. Joining twice keeps the first join time.
func (r *RoomRepository) AddMember(roomID domain.RoomID, userID domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := memberKey(roomID, userID)
		found, err := exists(txn, key)
		if err != nil || found {
			return err
		}
		return setJSON(txn, key, domain.Membership{
			UserID:   userID,
			RoomID:   roomID,
			JoinedAt: time.Now().UTC(),
		})
	})
}

func (r *RoomRepository) ListMembers(roomID domain.RoomID) ([]domain.Membership, error) {
	members := make([]domain.Membership, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberPrefix(roomID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var member domain.Membership
				if err := json.Unmarshal(val, &member); err != nil {
					return err
				}
				members = append(members, member)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return members, err
}
