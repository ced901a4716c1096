package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"wavelink/contract"
	"wavelink/domain"
	apperrors "wavelink/errors"
	"wavelink/repositories"
)

// NotificationService is the decision engine: it classifies each domain
// event, stores or merges the resulting notification, and pushes the
// outcome to the recipient's personal room. Push is fire-and-forget:
// recipients without a live connection simply find the row later.
type NotificationService struct {
	log           *slog.Logger
	notifications repositories.INotificationRepository
	pusher        contract.Pusher
}

func NewNotificationService(
	log *slog.Logger,
	notifications repositories.INotificationRepository,
	pusher contract.Pusher,
) *NotificationService {
	return &NotificationService{log: log, notifications: notifications, pusher: pusher}
}

func (s *NotificationService) Process(_ context.Context, e domain.Event) error {
	// Self-events never notify, whatever their kind.
	if e.IsSelf() {
		s.log.Debug("dropping self event", "kind", e.Kind, "actor_id", e.ActorID)
		return nil
	}

	switch e.Kind.Classify() {
	case domain.ClassAlwaysNotify:
		notification := domain.NewNotification(e)
		if err := s.notifications.Insert(notification); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		s.push(notification)
		return nil

	case domain.ClassAggregate:
		merged, err := s.notifications.MergeActor(e.RecipientID, e.Kind, e.EntityID, e.ActorID, e.CreatedAt)
		if err != nil {
			return err
		}
		s.push(merged)
		return nil

	default:
		// The kind set is closed; reaching here means a producer
		// shipped an event the engine has no rule for. Surfaced, never
		// swallowed.
		return fmt.Errorf("%w: %q", apperrors.ErrUnclassifiedEvent, e.Kind)
	}
}

func (s *NotificationService) push(n domain.Notification) {
	s.pusher.Push(contract.UserRoom(n.RecipientID), "notification", toNotificationView(n))
}

func (s *NotificationService) ListForUser(recipientID string, limit int) ([]NotificationView, error) {
	notifications, err := s.notifications.ListForUser(recipientID, limit)
	if err != nil {
		return nil, err
	}
	return lo.Map(notifications, func(n domain.Notification, _ int) NotificationView {
		return toNotificationView(n)
	}), nil
}

func (s *NotificationService) MarkSeen(recipientID string, id uuid.UUID) error {
	return s.notifications.MarkSeen(recipientID, id)
}
