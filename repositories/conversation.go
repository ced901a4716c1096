//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
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

type IConversationRepository interface {
	CreateOrGetDirect(userA, userB string, at time.Time) (domain.Conversation, bool, error)
	CreateGroup(title string, memberIDs []string, at time.Time) (domain.Conversation, error)
	Get(id uuid.UUID) (domain.Conversation, error)
	IsParticipant(convID uuid.UUID, userID string) (bool, error)
	Participants(convID uuid.UUID) ([]domain.Participant, error)
	ListForUser(userID string) ([]domain.Conversation, error)
	GetParticipant(convID uuid.UUID, userID string) (domain.Participant, error)
	UpdateLastRead(convID uuid.UUID, userID string, at time.Time) (time.Time, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// CreateOrGetDirect resolves the unique 1:1 conversation for a pair,
// creating it on first contact. The lookup and the insert of the
// conversation, its dedup key and both participant rows happen in one
// transaction; a concurrent first-contact race surfaces as a badger
// conflict and is retried as "already exists", never propagated.
// The second return value reports whether the conversation was created.
func (r ConversationRepository) CreateOrGetDirect(userA, userB string, at time.Time) (domain.Conversation, bool, error) {
	directKey := domain.DirectKey(userA, userB)

	for {
		var conv domain.Conversation
		created := false

		err := r.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(directKeyKey(directKey))
			if err == nil {
				// Already exists, resolve the id to the full record.
				return item.Value(func(val []byte) error {
					existing, innerErr := getConversation(txn, uuid.MustParse(string(val)))
					conv = existing
					return innerErr
				})
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			conv = domain.NewDirectConversation(userA, userB, at)
			created = true
			if err := putJSON(txn, conversationKey(conv.ID), conv); err != nil {
				return err
			}
			if err := txn.Set(directKeyKey(directKey), []byte(conv.ID.String())); err != nil {
				return err
			}
			for _, userID := range []string{userA, userB} {
				if err := r.addParticipant(txn, conv.ID, userID, at); err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			// Both participants raced first contact; loop and re-fetch.
			r.log.Debug("direct conversation creation conflict, retrying", "direct_key", directKey)
			continue
		}
		if err != nil {
			return domain.Conversation{}, false, fmt.Errorf("create or get direct conversation: %w", err)
		}
		return conv, created, nil
	}
}

func (r ConversationRepository) CreateGroup(title string, memberIDs []string, at time.Time) (domain.Conversation, error) {
	conv := domain.NewGroupConversation(title, at)

	err := r.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, conversationKey(conv.ID), conv); err != nil {
			return err
		}
		for _, userID := range memberIDs {
			if err := r.addParticipant(txn, conv.ID, userID, at); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("create group conversation: %w", err)
	}
	return conv, nil
}

func (r ConversationRepository) addParticipant(txn *badger.Txn, convID uuid.UUID, userID string, at time.Time) error {
	participant := domain.Participant{ConversationID: convID, UserID: userID, JoinedAt: at}
	if err := putJSON(txn, participantKey(convID, userID), participant); err != nil {
		return err
	}
	return txn.Set(userConversationKey(userID, convID), nil)
}

func (r ConversationRepository) Get(id uuid.UUID) (domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getConversation(txn, id)
		conv = found
		return err
	})
	return conv, err
}

func getConversation(txn *badger.Txn, id uuid.UUID) (domain.Conversation, error) {
	var conv domain.Conversation
	item, err := txn.Get(conversationKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return conv, apperrors.ErrConversationNotFound
	}
	if err != nil {
		return conv, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &conv)
	})
	return conv, err
}

func (r ConversationRepository) IsParticipant(convID uuid.UUID, userID string) (bool, error) {
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(participantKey(convID, userID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r ConversationRepository) Participants(convID uuid.UUID) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := participantPrefix(convID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p domain.Participant
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			participants = append(participants, p)
		}
		return nil
	})
	return participants, err
}

func (r ConversationRepository) GetParticipant(convID uuid.UUID, userID string) (domain.Participant, error) {
	var participant domain.Participant
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(participantKey(convID, userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrNotParticipant
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &participant)
		})
	})
	return participant, err
}

// ListForUser walks the reverse index, so it can only ever surface
// conversations the user is a member of.
func (r ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := userConversationPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rawID := it.Item().Key()[len(prefix):]
			convID, err := uuid.ParseBytes(rawID)
			if err != nil {
				return fmt.Errorf("corrupt reverse index key %q: %w", it.Item().Key(), err)
			}
			conv, err := getConversation(txn, convID)
			if err != nil {
				return err
			}
			conversations = append(conversations, conv)
		}
		return nil
	})
	return conversations, err
}

// UpdateLastRead advances the participant's read cursor. The stored
// value is monotone: a stale or replayed receipt never moves it back.
// The applied timestamp is returned so callers can echo it to the room.
func (r ConversationRepository) UpdateLastRead(convID uuid.UUID, userID string, at time.Time) (time.Time, error) {
	var applied time.Time
	for {
		err := r.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(participantKey(convID, userID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return apperrors.ErrNotParticipant
			}
			if err != nil {
				return err
			}
			var participant domain.Participant
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &participant)
			}); err != nil {
				return err
			}

			if at.After(participant.LastReadAt) {
				participant.LastReadAt = at
			}
			applied = participant.LastReadAt
			return putJSON(txn, participantKey(convID, userID), participant)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return time.Time{}, err
		}
		return applied, nil
	}
}

func putJSON(txn *badger.Txn, key []byte, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(key, raw)
}
