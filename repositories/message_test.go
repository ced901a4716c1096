package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"wavelink/domain"
)

func storeMessages(t *testing.T, repository MessageRepository, convID uuid.UUID, senders []string, start time.Time) []domain.Message {
	t.Helper()
	messages := make([]domain.Message, 0, len(senders))
	for i, sender := range senders {
		m := domain.Message{
			ID:             uuid.New(),
			ConversationID: convID,
			SenderID:       sender,
			Content:        "message content",
			CreatedAt:      start.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repository.Store(m))
		messages = append(messages, m)
	}
	return messages
}

func TestMessageRepository_Page_NewestFirst(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	convID := uuid.New()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stored := storeMessages(t, repository, convID, []string{"alice", "bob", "alice", "bob", "alice"}, start)

	page, _, err := repository.Page(convID, 3, nil)
	req.NoError(err)
	req.Len(page, 3)
	req.Equal(stored[4].ID, page[0].ID)
	req.Equal(stored[3].ID, page[1].ID)
	req.Equal(stored[2].ID, page[2].ID)
}

func TestMessageRepository_Page_CursorWalkMatchesUnboundedFetch(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	convID := uuid.New()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	senders := make([]string, 13)
	for i := range senders {
		senders[i] = "alice"
	}
	storeMessages(t, repository, convID, senders, start)

	unbounded, _, err := repository.Page(convID, 100, nil)
	req.NoError(err)
	req.Len(unbounded, 13)

	var walked []domain.Message
	var cursor *string
	for {
		page, next, err := repository.Page(convID, 4, cursor)
		req.NoError(err)
		walked = append(walked, page...)

		// New messages arriving mid-walk must not disturb older pages.
		extra := domain.Message{
			ID:             uuid.New(),
			ConversationID: convID,
			SenderID:       "bob",
			Content:        "late arrival",
			CreatedAt:      time.Now().UTC(),
		}
		req.NoError(repository.Store(extra))

		if next == nil {
			break
		}
		cursor = next
	}

	ids := func(ms []domain.Message) []uuid.UUID {
		return lo.Map(ms, func(m domain.Message, _ int) uuid.UUID { return m.ID })
	}
	req.Equal(ids(unbounded), ids(walked)[:13],
		"cursor walk must agree with the unbounded fetch: no duplicates, no omissions")
}

func TestMessageRepository_UnreadCount(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	convID := uuid.New()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	storeMessages(t, repository, convID, []string{"bob", "bob", "alice", "bob"}, start)

	// Alice read up to the second message: two newer ones, one from bob.
	count, err := repository.UnreadCount(convID, "alice", start.Add(time.Second))
	req.NoError(err)
	req.Equal(1, count)

	// Nothing read yet: all three of bob's messages count, never alice's own.
	count, err = repository.UnreadCount(convID, "alice", time.Time{})
	req.NoError(err)
	req.Equal(3, count)
}

func TestMessageRepository_UpdateKeepsOrdering(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	convID := uuid.New()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stored := storeMessages(t, repository, convID, []string{"alice", "bob", "alice"}, start)

	deleted := stored[1]
	deleted.MarkDeleted(start.Add(time.Hour))
	req.NoError(repository.Update(deleted))

	page, _, err := repository.Page(convID, 10, nil)
	req.NoError(err)
	req.Len(page, 3, "deleted message keeps its row")
	req.Equal(stored[1].ID, page[1].ID, "ordering unchanged")
	req.Equal(domain.DeletedSentinel, page[1].Content)
	req.True(page[1].Deleted)

	fetched, err := repository.Get(stored[1].ID)
	req.NoError(err)
	req.True(fetched.Deleted)
}

func TestMessageRepository_LastMessage(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())
	convID := uuid.New()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stored := storeMessages(t, repository, convID, []string{"alice", "bob"}, start)

	last, err := repository.LastMessage(convID)
	req.NoError(err)
	req.Equal(stored[1].ID, last.ID)
}
