//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "wavelink/errors"
	"wavelink/domain"
)

type IMessageRepository interface {
	Store(m domain.Message) error
	Get(id uuid.UUID) (domain.Message, error)
	Update(m domain.Message) error
	Page(convID uuid.UUID, limit int, cursor *string) ([]domain.Message, *string, error)
	UnreadCount(convID uuid.UUID, userID string, since time.Time) (int, error)
	LastMessage(convID uuid.UUID) (domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// Store persists a message under its chronological key plus an id index
// entry so edit/delete can find the row without knowing its timestamp.
func (r MessageRepository) Store(m domain.Message) error {
	key := messageKey(m)
	return r.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, key, m); err != nil {
			return err
		}
		return txn.Set(messageIDKey(m.ID), key)
	})
}

func (r MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getMessageByID(txn, id)
		message = found
		return err
	})
	return message, err
}

func getMessageByID(txn *badger.Txn, id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	indexItem, err := txn.Get(messageIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return message, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return message, err
	}
	var storageKey []byte
	if err := indexItem.Value(func(val []byte) error {
		storageKey = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return message, err
	}

	item, err := txn.Get(storageKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return message, apperrors.ErrMessageNotFound
	}
	if err != nil {
		return message, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &message)
	})
	return message, err
}

// Update rewrites a message in place. ConversationID, ID and CreatedAt
// never change, so the chronological key stays stable and ordering is
// preserved for readers mid-pagination.
func (r MessageRepository) Update(m domain.Message) error {
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(messageIDKey(m.ID)); errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrMessageNotFound
		} else if err != nil {
			return err
		}
		return putJSON(txn, messageKey(m), m)
	})
}

// Page returns the newest-first page of a conversation. The cursor is
// opaque to callers: it encodes the storage key of the last returned
// message, and the next page seeks past it exclusively. Because keys
// order strictly on creation time plus id, concurrent inserts (always
// newer) never shift already-returned pages.
func (r MessageRepository) Page(convID uuid.UUID, limit int, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var nextCursor *string

	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := messagePrefix(convID)
		var seekKey []byte
		if cursor == nil {
			// 0xFF lands past every key of the conversation, so the
			// reverse iterator starts at the newest message.
			seekKey = append(append([]byte(nil), prefix...), 0xFF)
		} else {
			seekKey = []byte(*cursor)
		}

		it.Seek(seekKey)
		// An exclusive cursor: skip the entry the previous page ended on.
		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			var m domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			messages = append(messages, m)
			lastKey := string(it.Item().Key())
			nextCursor = &lastKey
		}

		// No further page, no cursor.
		if !it.ValidForPrefix(prefix) {
			nextCursor = nil
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("page messages: %w", err)
	}
	return messages, nextCursor, nil
}

// UnreadCount counts messages from other senders created strictly after
// the participant's read cursor.
func (r MessageRepository) UnreadCount(convID uuid.UUID, userID string, since time.Time) (int, error) {
	count := 0
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := messagePrefix(convID)
		seekKey := messageSeekKey(convID, since.UnixNano()+1)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var m domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			if m.SenderID != userID && m.CreatedAt.After(since) {
				count++
			}
		}
		return nil
	})
	return count, err
}

// LastMessage returns the newest message of a conversation, used for
// conversation-list previews. ErrMessageNotFound on an empty thread.
func (r MessageRepository) LastMessage(convID uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := messagePrefix(convID)
		it.Seek(append(append([]byte(nil), prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return apperrors.ErrMessageNotFound
		}
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		})
	})
	return message, err
}
