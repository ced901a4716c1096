package workers

import (
	"context"
	"errors"
	"log/slog"

	"wavelink/domain"
	apperrors "wavelink/errors"
)

// Engine is the notification decision engine's surface as the worker
// sees it.
type Engine interface {
	Process(ctx context.Context, e domain.Event) error
}

// Notifier drains the event bus into the decision engine. A failed
// store/merge is retried once and then surfaced as a pipeline fault in
// the log: an event must never vanish silently between the bus and the
// notification store. Classification gaps are flagged, not retried.
type Notifier struct {
	log    *slog.Logger
	events <-chan domain.Event
	engine Engine
}

func NewNotifier(log *slog.Logger, events <-chan domain.Event, engine Engine) *Notifier {
	return &Notifier{log: log, events: events, engine: engine}
}

func (w *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notifier")
			return nil
		case evt := <-w.events:
			w.process(ctx, evt)
		}
	}
}

func (w *Notifier) process(ctx context.Context, evt domain.Event) {
	err := w.engine.Process(ctx, evt)
	if err == nil {
		return
	}
	if errors.Is(err, apperrors.ErrUnclassifiedEvent) {
		w.log.Error("unclassified event kind reached the pipeline",
			"kind", evt.Kind, "recipient_id", evt.RecipientID)
		return
	}

	if err = w.engine.Process(ctx, evt); err != nil {
		w.log.Error("notification pipeline fault, event lost after retry",
			"kind", evt.Kind,
			"actor_id", evt.ActorID,
			"recipient_id", evt.RecipientID,
			"error", err)
	}
}
