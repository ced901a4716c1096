package runtime

import (
	"log/slog"

	"wavelink/domain"
)

// Bus is the in-process channel carrying domain events from producer
// modules (message sends here; likes, comments and follows from the CRUD
// surface) to the notification decision engine. Publish never blocks a
// producer: when the buffer is full the event is dropped with a warning,
// which keeps a stalled pipeline from backpressuring request handlers.
type Bus struct {
	events chan domain.Event
	log    *slog.Logger
}

func NewBus(bufferSize int, log *slog.Logger) *Bus {
	return &Bus{
		events: make(chan domain.Event, bufferSize),
		log:    log,
	}
}

func (b *Bus) Publish(e domain.Event) {
	select {
	case b.events <- e:
	default:
		b.log.Warn("event bus full, dropping event",
			"kind", e.Kind, "recipient_id", e.RecipientID)
	}
}

func (b *Bus) Events() <-chan domain.Event {
	return b.events
}
