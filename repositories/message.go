package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

var _ contract.IMessageRepository = MessageRepository{}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type messageRecord struct {
	ID         uuid.UUID     `json:"id"`
	RoomID     domain.RoomID `json:"room_id"`
	SenderID   domain.UserID `json:"sender_id"`
	SenderName string        `json:"sender_name"`
	Content    string        `json:"content"`
	SentAt     time.Time     `json:"sent_at"`
}

// InsertMessage persists a message stamped with the server clock.
// The key is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Keep two messages sent in the same nanosecond apart.
func (m MessageRepository) InsertMessage(roomID domain.RoomID, sender domain.User, content string) (domain.Message, error) {
	record := messageRecord{
		ID:         uuid.New(),
		RoomID:     roomID,
		SenderID:   sender.ID,
		SenderName: sender.Username,
		Content:    content,
		SentAt:     time.Now().UTC(),
	}
	key := fmt.Sprintf("%s%019d:%s", messagePrefix(roomID), record.SentAt.UnixNano(), record.ID)
	bytes, err := json.Marshal(record)
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(record), nil
}

// ListRecentMessages walks the room prefix backwards from the far future,
// so messages come out newest first.
func (m MessageRepository) ListRecentMessages(roomID domain.RoomID, limit int) ([]domain.Message, error) {
	var records []messageRecord
	if limit <= 0 {
		return nil, nil
	}
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(records) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var record messageRecord
				if err := json.Unmarshal(value, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r messageRecord, _ int) domain.Message { return toMessage(r) }), nil
}

func toMessage(record messageRecord) domain.Message {
	return domain.Message{
		ID:         record.ID,
		RoomID:     record.RoomID,
		SenderID:   record.SenderID,
		SenderName: record.SenderName,
		Content:    record.Content,
		SentAt:     record.SentAt.UTC(),
	}
}
