package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"wavelink/domain"
	apperrors "wavelink/errors"
	"wavelink/repositories"
)

type recordingBus struct {
	published []domain.Event
}

func (b *recordingBus) Publish(e domain.Event)      { b.published = append(b.published, e) }
func (b *recordingBus) Events() <-chan domain.Event { return nil }

func newServiceForTest(t *testing.T) (*ConversationService, *recordingBus, repositories.UserRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	bus := &recordingBus{}
	users := repositories.NewUserRepository(db)
	service := NewConversationService(
		log,
		repositories.NewConversationRepository(db, log),
		repositories.NewMessageRepository(db, log),
		users,
		bus,
		20, 100,
	)
	return service, bus, users
}

func TestConversationService_SendToRecipientCreatesConversation(t *testing.T) {
	req := require.New(t)
	service, bus, users := newServiceForTest(t)
	req.NoError(users.Put(domain.User{ID: "alice", Name: "Alice", AvatarURL: "https://cdn/a.png"}))

	view, err := service.Send(context.Background(), SendCommand{
		SenderID:    "alice",
		RecipientID: lo.ToPtr("bob"),
		Content:     "hi",
	})
	req.NoError(err)
	req.NotEqual(uuid.Nil, view.ID)
	req.Equal("hi", view.Content)
	req.Equal("Alice", view.Sender.Name, "sender must be flattened into the view")

	// Second send by the other party lands in the same thread.
	reply, err := service.Send(context.Background(), SendCommand{
		SenderID:    "bob",
		RecipientID: lo.ToPtr("alice"),
		Content:     "hello back",
	})
	req.NoError(err)
	req.Equal(view.ConversationID, reply.ConversationID)

	// One MessageSent event per other participant, never the sender.
	req.Len(bus.published, 2)
	req.Equal(domain.KindMessageSent, bus.published[0].Kind)
	req.Equal("bob", bus.published[0].RecipientID)
	req.Equal("alice", bus.published[1].RecipientID)
}

func TestConversationService_PageResolvesSenderProfiles(t *testing.T) {
	req := require.New(t)
	service, _, users := newServiceForTest(t)
	req.NoError(users.Put(domain.User{ID: "alice", Name: "Alice"}))
	req.NoError(users.Put(domain.User{ID: "bob", Name: "Bob"}))

	first, err := service.Send(context.Background(), SendCommand{
		SenderID:    "alice",
		RecipientID: lo.ToPtr("bob"),
		Content:     "one",
	})
	req.NoError(err)
	_, err = service.Send(context.Background(), SendCommand{
		SenderID:    "bob",
		RecipientID: lo.ToPtr("alice"),
		Content:     "two",
	})
	req.NoError(err)

	page, _, err := service.Page(first.ConversationID, "alice", 10, nil)
	req.NoError(err)
	req.Len(page, 2)
	names := lo.Map(page, func(v MessageView, _ int) string { return v.Sender.Name })
	req.ElementsMatch([]string{"Alice", "Bob"}, names, "each message carries its own flattened sender")
}

func TestConversationService_PageKeepsUnknownSenderIDs(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)

	first, err := service.Send(context.Background(), SendCommand{
		SenderID:    "ghost",
		RecipientID: lo.ToPtr("bob"),
		Content:     "boo",
	})
	req.NoError(err)

	page, _, err := service.Page(first.ConversationID, "bob", 10, nil)
	req.NoError(err)
	req.Len(page, 1)
	req.Equal("ghost", page[0].Sender.ID, "a missing profile never hides the sender id")
	req.Empty(page[0].Sender.Name)
}

func TestConversationService_SendRejectsNonParticipant(t *testing.T) {
	req := require.New(t)
	service, bus, _ := newServiceForTest(t)

	conv, err := service.CreateGroup("maths", []string{"alice", "bob"})
	req.NoError(err)

	_, err = service.Send(context.Background(), SendCommand{
		SenderID:       "mallory",
		ConversationID: &conv.ID,
		Content:        "let me in",
	})
	req.ErrorIs(err, apperrors.ErrNotParticipant)
	req.Empty(bus.published, "a rejected send must not emit events")
}

func TestConversationService_SendRequiresATarget(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)

	_, err := service.Send(context.Background(), SendCommand{SenderID: "alice", Content: "hi"})
	req.ErrorIs(err, apperrors.ErrInvalidPayload)
}

func TestConversationService_ListForUser(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)

	first, err := service.Send(context.Background(), SendCommand{
		SenderID:    "alice",
		RecipientID: lo.ToPtr("bob"),
		Content:     "one",
	})
	req.NoError(err)
	_, err = service.Send(context.Background(), SendCommand{
		SenderID:       "alice",
		ConversationID: &first.ConversationID,
		Content:        "two",
	})
	req.NoError(err)

	summaries, err := service.ListForUser("bob")
	req.NoError(err)
	req.Len(summaries, 1)
	req.Equal(2, summaries[0].UnreadCount)
	req.NotNil(summaries[0].LastMessage)
	req.Equal("two", summaries[0].LastMessage.Content)

	// Reading clears the counter.
	_, err = service.MarkRead(first.ConversationID, "bob", nil)
	req.NoError(err)
	summaries, err = service.ListForUser("bob")
	req.NoError(err)
	req.Equal(0, summaries[0].UnreadCount)

	// A stranger sees no conversations at all.
	summaries, err = service.ListForUser("mallory")
	req.NoError(err)
	req.Empty(summaries)
}

func TestConversationService_EditAndDeleteAreSenderOnly(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)

	sent, err := service.Send(context.Background(), SendCommand{
		SenderID:    "alice",
		RecipientID: lo.ToPtr("bob"),
		Content:     "draft",
	})
	req.NoError(err)

	_, err = service.Edit(sent.ID, "bob", "hijacked")
	req.ErrorIs(err, apperrors.ErrNotSender)

	edited, err := service.Edit(sent.ID, "alice", "final")
	req.NoError(err)
	req.Equal("final", edited.Content)
	req.NotNil(edited.EditedAt)

	_, err = service.Delete(sent.ID, "bob")
	req.ErrorIs(err, apperrors.ErrNotSender)

	deleted, err := service.Delete(sent.ID, "alice")
	req.NoError(err)
	req.True(deleted.Deleted)
	req.Equal(domain.DeletedSentinel, deleted.Content)

	// Editing a deleted message is refused.
	_, err = service.Edit(sent.ID, "alice", "resurrect")
	req.ErrorIs(err, apperrors.ErrMessageNotFound)
}

func TestConversationService_PageChecksMembership(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)

	sent, err := service.Send(context.Background(), SendCommand{
		SenderID:    "alice",
		RecipientID: lo.ToPtr("bob"),
		Content:     "secret",
	})
	req.NoError(err)

	_, _, err = service.Page(sent.ConversationID, "mallory", 10, nil)
	req.ErrorIs(err, apperrors.ErrNotParticipant)

	page, _, err := service.Page(sent.ConversationID, "bob", 10, nil)
	req.NoError(err)
	req.Len(page, 1)
}

func TestConversationService_IsMemberMatchesTransportKind(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)

	direct, err := service.CreateOrGetDirect("alice", "bob")
	req.NoError(err)
	group, err := service.CreateGroup("ops", []string{"alice"})
	req.NoError(err)

	ok, err := service.IsMember(direct.ID, "alice", false)
	req.NoError(err)
	req.True(ok)

	// A direct thread is invisible to the group transport and vice versa.
	ok, err = service.IsMember(direct.ID, "alice", true)
	req.NoError(err)
	req.False(ok)
	ok, err = service.IsMember(group.ID, "alice", false)
	req.NoError(err)
	req.False(ok)

	_, err = service.IsMember(uuid.New(), "alice", false)
	req.ErrorIs(err, apperrors.ErrConversationNotFound)
}

func TestConversationService_MarkReadDefaultsToNow(t *testing.T) {
	req := require.New(t)
	service, _, _ := newServiceForTest(t)
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	service.WithClock(func() time.Time { return frozen })

	conv, err := service.CreateOrGetDirect("alice", "bob")
	req.NoError(err)

	applied, err := service.MarkRead(conv.ID, "alice", nil)
	req.NoError(err)
	req.True(applied.Equal(frozen))
}
