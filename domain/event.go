package domain

import "time"

// EventKind enumerates every domain action that can trigger a
// notification. The set is closed: the decision engine switches over it
// exhaustively and anything outside it is an observable pipeline fault,
// never a silent drop.
type EventKind string

const (
	KindFollowed      EventKind = "followed"
	KindMessageSent   EventKind = "message_sent"
	KindGroupInvited  EventKind = "group_invited"
	KindPostLiked     EventKind = "post_liked"
	KindPostCommented EventKind = "post_commented"
)

// Class decides how an event reaches the recipient.
type Class int

const (
	// ClassAlwaysNotify events create a fresh notification every time.
	ClassAlwaysNotify Class = iota
	// ClassAggregate events merge into the open unseen counter for the
	// same (recipient, kind, entity).
	ClassAggregate
	// ClassUnclassified marks a kind the engine has no rule for.
	ClassUnclassified
)

func (k EventKind) Classify() Class {
	switch k {
	case KindFollowed, KindMessageSent, KindGroupInvited:
		return ClassAlwaysNotify
	case KindPostLiked, KindPostCommented:
		return ClassAggregate
	default:
		return ClassUnclassified
	}
}

// Event is the transient record carried on the bus from any producer to
// the decision engine. It is consumed exactly once and discarded.
type Event struct {
	Kind        EventKind
	ActorID     string
	RecipientID string
	EntityID    string
	CreatedAt   time.Time
}

func (e Event) IsSelf() bool {
	return e.ActorID == e.RecipientID
}
