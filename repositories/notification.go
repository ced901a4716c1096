//go:generate go run go.uber.org/mock/mockgen -source=notification.go -destination=../mocks/mock_notification_repository.go -package=mocks
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

type INotificationRepository interface {
	Insert(n domain.Notification) error
	MergeActor(recipientID string, kind domain.EventKind, entityID, actorID string, at time.Time) (domain.Notification, error)
	ListForUser(recipientID string, limit int) ([]domain.Notification, error)
	MarkSeen(recipientID string, id uuid.UUID) error
}

type NotificationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewNotificationRepository(db *badger.DB, log *slog.Logger) NotificationRepository {
	return NotificationRepository{db: db, log: log}
}

// Insert stores an always-notify notification. Aggregatable rows also
// pass through here on first occurrence, registering their open
// aggregate pointer in the same transaction.
func (r NotificationRepository) Insert(n domain.Notification) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return insertNotification(txn, n)
	})
}

func insertNotification(txn *badger.Txn, n domain.Notification) error {
	key := notificationKey(n)
	if err := putJSON(txn, key, n); err != nil {
		return err
	}
	if err := txn.Set(notificationIDKey(n.ID), key); err != nil {
		return err
	}
	if n.Kind.Classify() == domain.ClassAggregate && !n.Seen {
		return txn.Set(aggregateKey(n.RecipientID, n.Kind, n.EntityID), []byte(n.ID.String()))
	}
	return nil
}

// MergeActor folds an aggregatable event into the open unseen row for
// (recipient, kind, entity), creating it when absent. The lookup, the
// actor-set mutation and the write happen in one transaction, so
// concurrent merges serialize through badger's conflict detection
// instead of losing updates; conflicting attempts are retried.
func (r NotificationRepository) MergeActor(recipientID string, kind domain.EventKind, entityID, actorID string, at time.Time) (domain.Notification, error) {
	for {
		var merged domain.Notification

		err := r.db.Update(func(txn *badger.Txn) error {
			pointer, err := txn.Get(aggregateKey(recipientID, kind, entityID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				merged = domain.NewNotification(domain.Event{
					Kind:        kind,
					ActorID:     actorID,
					RecipientID: recipientID,
					EntityID:    entityID,
					CreatedAt:   at,
				})
				return insertNotification(txn, merged)
			}
			if err != nil {
				return err
			}

			var id uuid.UUID
			if err := pointer.Value(func(val []byte) error {
				id, err = uuid.ParseBytes(val)
				return err
			}); err != nil {
				return err
			}

			existing, err := getNotificationByID(txn, id)
			if err != nil {
				return err
			}
			existing.AddActor(actorID, at)
			merged = existing
			return putJSON(txn, notificationKey(existing), existing)
		})
		if errors.Is(err, badger.ErrConflict) {
			r.log.Debug("notification merge conflict, retrying",
				"recipient_id", recipientID, "kind", kind, "entity_id", entityID)
			continue
		}
		if err != nil {
			return domain.Notification{}, fmt.Errorf("merge notification actor: %w", err)
		}
		return merged, nil
	}
}

func getNotificationByID(txn *badger.Txn, id uuid.UUID) (domain.Notification, error) {
	var notification domain.Notification
	indexItem, err := txn.Get(notificationIDKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notification, apperrors.ErrNotificationNotFound
	}
	if err != nil {
		return notification, err
	}
	var storageKey []byte
	if err := indexItem.Value(func(val []byte) error {
		storageKey = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return notification, err
	}
	item, err := txn.Get(storageKey)
	if err != nil {
		return notification, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &notification)
	})
	return notification, err
}

// ListForUser returns the newest notifications first.
func (r NotificationRepository) ListForUser(recipientID string, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := notificationPrefix(recipientID)
		seekKey := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(notifications) < limit; it.Next() {
			var n domain.Notification
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return err
			}
			notifications = append(notifications, n)
		}
		return nil
	})
	return notifications, err
}

// MarkSeen flags the row and closes its aggregate pointer, so the next
// aggregatable event for the same triple opens a fresh counter.
func (r NotificationRepository) MarkSeen(recipientID string, id uuid.UUID) error {
	for {
		err := r.db.Update(func(txn *badger.Txn) error {
			notification, err := getNotificationByID(txn, id)
			if err != nil {
				return err
			}
			if notification.RecipientID != recipientID {
				return apperrors.ErrNotificationNotFound
			}
			if notification.Seen {
				return nil
			}
			notification.Seen = true
			if err := putJSON(txn, notificationKey(notification), notification); err != nil {
				return err
			}
			if notification.Kind.Classify() == domain.ClassAggregate {
				return txn.Delete(aggregateKey(recipientID, notification.Kind, notification.EntityID))
			}
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
}
