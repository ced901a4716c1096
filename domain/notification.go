package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is either a single always-notify alert or the merged
// state of all not-yet-seen aggregatable events for one
// (recipient, kind, entity). ActorIDs is an append-only ordered set and
// Count always equals its length.
type Notification struct {
	ID          uuid.UUID
	RecipientID string
	Kind        EventKind
	EntityID    string
	ActorIDs    []string
	Count       int
	Seen        bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewNotification(e Event) Notification {
	return Notification{
		ID:          uuid.New(),
		RecipientID: e.RecipientID,
		Kind:        e.Kind,
		EntityID:    e.EntityID,
		ActorIDs:    []string{e.ActorID},
		Count:       1,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.CreatedAt,
	}
}

// AddActor merges an actor into the set. Re-adding an existing actor is
// a no-op, which makes aggregation idempotent under redelivery.
func (n *Notification) AddActor(actorID string, at time.Time) {
	for _, id := range n.ActorIDs {
		if id == actorID {
			return
		}
	}
	n.ActorIDs = append(n.ActorIDs, actorID)
	n.Count = len(n.ActorIDs)
	n.UpdatedAt = at
}
