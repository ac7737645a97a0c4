package repositories

import (
	"encoding/json"
	"fmt"
	"roomchat/domain"
	"roomchat/errors"

	"github.com/dgraph-io/badger/v4"
)

// Key layout. Ids are zero padded so that prefix scans return them in order.
//
//	user:id:{id}                 -> userRecord
//	user:name:{username}         -> id
//	user:email:{email}           -> id
//	room:id:{id}                 -> roomRecord
//	room:name:{name}             -> id
//	member:{room}:{user}         -> domain.Membership
//	msg:{room}:{unix nanos}:{uuid} -> messageRecord
const (
	userIDPrefix    = "user:id:"
	userNamePrefix  = "user:name:"
	userEmailPrefix = "user:email:"
	roomIDPrefix    = "room:id:"
	roomNamePrefix  = "room:name:"
	userSequenceKey = "seq:user"
	roomSequenceKey = "seq:room"
	sequenceLease   = 100
)

func userKey(id domain.UserID) []byte { return []byte(fmt.Sprintf("%s%010d", userIDPrefix, id)) }

func userNameKey(name string) []byte { return []byte(userNamePrefix + name) }

func userEmailKey(email string) []byte { return []byte(userEmailPrefix + email) }

func roomKey(id domain.RoomID) []byte { return []byte(fmt.Sprintf("%s%010d", roomIDPrefix, id)) }

func roomNameKey(name string) []byte { return []byte(roomNamePrefix + name) }

func memberPrefix(roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("member:%010d:", roomID))
}

func memberKey(roomID domain.RoomID, userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("member:%010d:%010d", roomID, userID))
}

func messagePrefix(roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%010d:", roomID))
}

// getJSON loads key into v, mapping a missing key to ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// ensureFree fails with ErrAlreadyExists when key is taken.
func ensureFree(txn *badger.Txn, key []byte, what string) error {
	taken, err := exists(txn, key)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%s: %w", what, errors.ErrAlreadyExists)
	}
	return nil
}

// nextID draws from a badger sequence. Zero is skipped so ids start at 1.
func nextID(seq *badger.Sequence) (int, error) {
	for {
		n, err := seq.Next()
		if err != nil {
			return 0, err
		}
		if n > 0 {
			return int(n), nil
		}
	}
}

// scanPage walks every value under prefix in key order, skipping the first
// skip entries and stopping after limit entries.
func scanPage(txn *badger.Txn, prefix []byte, skip, limit int, fn func(val []byte) error) error {
	if limit <= 0 {
		return nil
	}
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	seen, taken := 0, 0
	for it.Seek(prefix); it.ValidForPrefix(prefix) && taken < limit; it.Next() {
		if seen < skip {
			seen++
			continue
		}
		if err := it.Item().Value(fn); err != nil {
			return err
		}
		taken++
	}
	return nil
}

// deletePrefix removes every key under prefix through a write batch, so large
// rooms do not overflow a single transaction.
func deletePrefix(db *badger.DB, prefix []byte) error {
	var keys [][]byte
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}
