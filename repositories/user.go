package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"roomchat/contract"
	"roomchat/domain"
	"roomchat/errors"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

var _ contract.IUserRepository = (*UserRepository)(nil)

// userRecord is the stored form of a user. Unlike domain.User it keeps the hash.
type userRecord struct {
	ID           domain.UserID `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash"`
	Role         domain.Role   `json:"role"`
	CreatedAt    time.Time     `json:"created_at"`
}

func NewUserRepository(db *badger.DB, log *slog.Logger) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequenceKey), sequenceLease)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq, log: log}, nil
}

// Close hands back the unused part of the id lease.
func (u *UserRepository) Close() error {
	return u.seq.Release()
}

// CreateUser persists a new user. Username and email are unique; a clash
// returns ErrAlreadyExists.
func (u *UserRepository) CreateUser(user domain.User) (domain.User, error) {
	id, err := nextID(u.seq)
	if err != nil {
		return domain.User{}, err
	}
	user.ID = domain.UserID(id)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if err := ensureFree(txn, userNameKey(user.Username), "username "+user.Username); err != nil {
			return err
		}
		if err := ensureFree(txn, userEmailKey(user.Email), "email "+user.Email); err != nil {
			return err
		}
		idValue := []byte(strconv.Itoa(id))
		if err := txn.Set(userNameKey(user.Username), idValue); err != nil {
			return err
		}
		if err := txn.Set(userEmailKey(user.Email), idValue); err != nil {
			return err
		}
		return setJSON(txn, userKey(user.ID), toUserRecord(user))
	})
	if err != nil {
		return domain.User{}, err
	}
	u.log.Debug("User created", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (u *UserRepository) GetUserByUsername(username string) (domain.User, error) {
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userNameKey(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := strconv.Atoi(string(raw))
		if err != nil {
			return fmt.Errorf("corrupted username index for %q: %w", username, err)
		}
		return getJSON(txn, userKey(domain.UserID(id)), &record)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

func (u *UserRepository) GetUserByID(id domain.UserID) (domain.User, error) {
	var record userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &record)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

// ListUsers returns users in id order.
func (u *UserRepository) ListUsers(skip, limit int) ([]domain.User, error) {
	var records []userRecord
	err := u.db.View(func(txn *badger.Txn) error {
		return scanPage(txn, []byte(userIDPrefix), skip, limit, func(val []byte) error {
			var record userRecord
			if err := json.Unmarshal(val, &record); err != nil {
				return err
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r userRecord, _ int) domain.User { return toUser(r) }), nil
}

func (u *UserRepository) UpdateRole(id domain.UserID, role domain.Role) (domain.User, error) {
	var record userRecord
	err := u.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, userKey(id), &record); err != nil {
			return err
		}
		record.Role = role
		return setJSON(txn, userKey(id), record)
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(record), nil
}

func toUserRecord(user domain.User) userRecord {
	return userRecord{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
	}
}

func toUser(record userRecord) domain.User {
	return domain.User{
		ID:           record.ID,
		Username:     record.Username,
		Email:        record.Email,
		PasswordHash: record.PasswordHash,
		Role:         record.Role,
		CreatedAt:    record.CreatedAt.UTC(),
	}
}
