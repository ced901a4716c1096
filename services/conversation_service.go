//go:generate go run go.uber.org/mock/mockgen -source=conversation_service.go -destination=../mocks/mock_conversation_service.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"wavelink/contract"
	"wavelink/domain"
	apperrors "wavelink/errors"
	"wavelink/repositories"
)

// SendCommand carries one send intent. Exactly one of ConversationID or
// RecipientID must be set: a bare recipient resolves (or creates) the
// 1:1 thread first.
type SendCommand struct {
	SenderID       string
	ConversationID *uuid.UUID
	RecipientID    *string
	Content        string
	Attachments    []domain.Attachment
}

type IConversationService interface {
	CreateOrGetDirect(userA, userB string) (domain.Conversation, error)
	CreateGroup(title string, memberIDs []string) (domain.Conversation, error)
	IsMember(convID uuid.UUID, userID string, wantGroup bool) (bool, error)
	Send(ctx context.Context, cmd SendCommand) (MessageView, error)
	Page(convID uuid.UUID, userID string, limit int, cursor *string) ([]MessageView, *string, error)
	MarkRead(convID uuid.UUID, userID string, at *time.Time) (time.Time, error)
	ListForUser(userID string) ([]ConversationSummary, error)
	Edit(messageID uuid.UUID, userID, content string) (MessageView, error)
	Delete(messageID uuid.UUID, userID string) (MessageView, error)
}

type ConversationService struct {
	log           *slog.Logger
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	users         repositories.IUserRepository
	bus           contract.EventBus
	pageSize      int
	pageCap       int
	now           func() time.Time
}

func NewConversationService(
	log *slog.Logger,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	bus contract.EventBus,
	pageSize, pageCap int,
) *ConversationService {
	return &ConversationService{
		log:           log,
		conversations: conversations,
		messages:      messages,
		users:         users,
		bus:           bus,
		pageSize:      pageSize,
		pageCap:       pageCap,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the wall clock, for tests.
func (s *ConversationService) WithClock(now func() time.Time) *ConversationService {
	s.now = now
	return s
}

func (s *ConversationService) CreateOrGetDirect(userA, userB string) (domain.Conversation, error) {
	conv, created, err := s.conversations.CreateOrGetDirect(userA, userB, s.now())
	if err != nil {
		return domain.Conversation{}, err
	}
	if created {
		s.log.Info("direct conversation created",
			"conversation_id", conv.ID, "direct_key", conv.DirectKey)
	}
	return conv, nil
}

func (s *ConversationService) CreateGroup(title string, memberIDs []string) (domain.Conversation, error) {
	conv, err := s.conversations.CreateGroup(title, memberIDs, s.now())
	if err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info("group conversation created",
		"conversation_id", conv.ID, "members", len(memberIDs))
	return conv, nil
}

// IsMember answers the gateways' join check: the conversation must
// exist, match the transport kind, and list the user as a participant.
func (s *ConversationService) IsMember(convID uuid.UUID, userID string, wantGroup bool) (bool, error) {
	conv, err := s.conversations.Get(convID)
	if err != nil {
		return false, err
	}
	if conv.IsGroup != wantGroup {
		return false, nil
	}
	return s.conversations.IsParticipant(convID, userID)
}

// Send persists one message and emits a MessageSent event for every
// other participant. The returned view carries the flattened sender so
// the gateway can broadcast it as-is.
func (s *ConversationService) Send(ctx context.Context, cmd SendCommand) (MessageView, error) {
	conv, err := s.resolveTarget(cmd)
	if err != nil {
		return MessageView{}, err
	}

	isParticipant, err := s.conversations.IsParticipant(conv.ID, cmd.SenderID)
	if err != nil {
		return MessageView{}, err
	}
	if !isParticipant {
		return MessageView{}, apperrors.ErrNotParticipant
	}

	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       cmd.SenderID,
		Content:        cmd.Content,
		Attachments:    cmd.Attachments,
		CreatedAt:      s.now(),
	}
	if err := s.messages.Store(message); err != nil {
		return MessageView{}, fmt.Errorf("store message: %w", err)
	}

	participants, err := s.conversations.Participants(conv.ID)
	if err != nil {
		return MessageView{}, err
	}
	for _, p := range participants {
		if p.UserID == cmd.SenderID {
			continue
		}
		s.bus.Publish(domain.Event{
			Kind:        domain.KindMessageSent,
			ActorID:     cmd.SenderID,
			RecipientID: p.UserID,
			EntityID:    conv.ID.String(),
			CreatedAt:   message.CreatedAt,
		})
	}

	return s.toView(message), nil
}

func (s *ConversationService) resolveTarget(cmd SendCommand) (domain.Conversation, error) {
	switch {
	case cmd.ConversationID != nil:
		return s.conversations.Get(*cmd.ConversationID)
	case cmd.RecipientID != nil:
		return s.CreateOrGetDirect(cmd.SenderID, *cmd.RecipientID)
	default:
		return domain.Conversation{}, apperrors.ErrInvalidPayload
	}
}

func (s *ConversationService) Page(convID uuid.UUID, userID string, limit int, cursor *string) ([]MessageView, *string, error) {
	isParticipant, err := s.conversations.IsParticipant(convID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !isParticipant {
		return nil, nil, apperrors.ErrNotParticipant
	}

	if limit <= 0 {
		limit = s.pageSize
	}
	if limit > s.pageCap {
		limit = s.pageCap
	}
	messages, next, err := s.messages.Page(convID, limit, cursor)
	if err != nil {
		return nil, nil, err
	}
	views, err := s.toViews(messages)
	if err != nil {
		return nil, nil, err
	}
	return views, next, nil
}

// MarkRead advances the caller's read cursor, defaulting to now. The
// repository keeps the stored value monotone, so replays are harmless.
func (s *ConversationService) MarkRead(convID uuid.UUID, userID string, at *time.Time) (time.Time, error) {
	readAt := s.now()
	if at != nil {
		readAt = *at
	}
	return s.conversations.UpdateLastRead(convID, userID, readAt)
}

func (s *ConversationService) ListForUser(userID string) ([]ConversationSummary, error) {
	conversations, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, conv := range conversations {
		participant, err := s.conversations.GetParticipant(conv.ID, userID)
		if err != nil {
			return nil, err
		}

		summary := ConversationSummary{
			ID:         conv.ID,
			IsGroup:    conv.IsGroup,
			Title:      conv.Title,
			LastReadAt: participant.LastReadAt,
		}

		last, err := s.messages.LastMessage(conv.ID)
		if err == nil {
			view := s.toView(last)
			summary.LastMessage = &view
		} else if !errors.Is(err, apperrors.ErrMessageNotFound) {
			return nil, err
		}

		summary.UnreadCount, err = s.messages.UnreadCount(conv.ID, userID, participant.LastReadAt)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Edit rewrites a message's content. Sender-only.
func (s *ConversationService) Edit(messageID uuid.UUID, userID, content string) (MessageView, error) {
	message, err := s.messages.Get(messageID)
	if err != nil {
		return MessageView{}, err
	}
	if message.SenderID != userID {
		return MessageView{}, apperrors.ErrNotSender
	}
	if message.Deleted {
		return MessageView{}, apperrors.ErrMessageNotFound
	}

	now := s.now()
	message.Content = content
	message.EditedAt = &now
	if err := s.messages.Update(message); err != nil {
		return MessageView{}, err
	}
	return s.toView(message), nil
}

// Delete blanks a message to the visible sentinel, keeping the row so
// other participants' threads keep their ordering. Sender-only.
func (s *ConversationService) Delete(messageID uuid.UUID, userID string) (MessageView, error) {
	message, err := s.messages.Get(messageID)
	if err != nil {
		return MessageView{}, err
	}
	if message.SenderID != userID {
		return MessageView{}, apperrors.ErrNotSender
	}

	message.MarkDeleted(s.now())
	if err := s.messages.Update(message); err != nil {
		return MessageView{}, err
	}
	return s.toView(message), nil
}

func (s *ConversationService) toView(m domain.Message) MessageView {
	var sender domain.User
	if user, err := s.users.Get(m.SenderID); err == nil {
		sender = user
	}
	return newMessageView(m, sender)
}

// toViews flattens a whole page with a single batched profile lookup
// instead of one read per message.
func (s *ConversationService) toViews(messages []domain.Message) ([]MessageView, error) {
	senderIDs := lo.Uniq(lo.Map(messages, func(m domain.Message, _ int) string { return m.SenderID }))
	senders, err := s.users.GetMany(senderIDs)
	if err != nil {
		return nil, err
	}
	return lo.Map(messages, func(m domain.Message, _ int) MessageView {
		return newMessageView(m, senders[m.SenderID])
	}), nil
}

// newMessageView keeps the sender id even when no profile is stored, so
// deleted accounts still render.
func newMessageView(m domain.Message, sender domain.User) MessageView {
	view := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         UserView{ID: m.SenderID},
		Content:        m.Content,
		Attachments:    m.Attachments,
		CreatedAt:      m.CreatedAt,
		EditedAt:       m.EditedAt,
		Deleted:        m.Deleted,
	}
	if sender.ID != "" {
		view.Sender.Name = sender.Name
		view.Sender.AvatarURL = sender.AvatarURL
	}
	return view
}
