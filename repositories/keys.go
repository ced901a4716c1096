// Package repositories persists the realtime core's entities in
// BadgerDB. Keys embed a 19-digit zero-padded creation timestamp so a
// plain lexicographic scan yields chronological order, with the entity
// id as a collision disconnector for same-nanosecond writes.
package repositories

import (
	"fmt"

	"github.com/google/uuid"

	"wavelink/domain"
)

func conversationKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("conv:%s", id))
}

// directKeyKey anchors 1:1 uniqueness: at most one conversation per
// sorted participant pair, enforced inside a single transaction.
func directKeyKey(directKey string) []byte {
	return []byte(fmt.Sprintf("convkey:%s", directKey))
}

func participantKey(convID uuid.UUID, userID string) []byte {
	return []byte(fmt.Sprintf("part:%s:%s", convID, userID))
}

func participantPrefix(convID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("part:%s:", convID))
}

// userConversationKey is the reverse index used by ListForUser.
func userConversationKey(userID string, convID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("partuser:%s:%s", userID, convID))
}

func userConversationPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("partuser:%s:", userID))
}

func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ConversationID, m.CreatedAt.UnixNano(), m.ID))
}

func messagePrefix(convID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", convID))
}

func messageSeekKey(convID uuid.UUID, unixNano int64) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d", convID, unixNano))
}

// messageIDKey maps a message id to its chronological storage key, for
// by-id operations (edit, delete, ack reconciliation).
func messageIDKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msgid:%s", id))
}

func notificationKey(n domain.Notification) []byte {
	return []byte(fmt.Sprintf("notif:%s:%019d:%s", n.RecipientID, n.CreatedAt.UnixNano(), n.ID))
}

func notificationPrefix(recipientID string) []byte {
	return []byte(fmt.Sprintf("notif:%s:", recipientID))
}

func notificationIDKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("notifid:%s", id))
}

// aggregateKey points at the open (unseen) aggregated notification for a
// (recipient, kind, entity) triple. Deleted when the row is seen.
func aggregateKey(recipientID string, kind domain.EventKind, entityID string) []byte {
	return []byte(fmt.Sprintf("notifagg:%s:%s:%s", recipientID, kind, entityID))
}

func userKey(id string) []byte {
	return []byte(fmt.Sprintf("user:%s", id))
}
