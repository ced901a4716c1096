package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"wavelink/contract"
	"wavelink/domain"
	apperrors "wavelink/errors"
	"wavelink/repositories"
)

type pushRecord struct {
	room    contract.RoomKey
	event   string
	payload any
}

type recordingPusher struct {
	pushes []pushRecord
}

func (p *recordingPusher) Push(room contract.RoomKey, event string, payload any) {
	p.pushes = append(p.pushes, pushRecord{room: room, event: event, payload: payload})
}

func (p *recordingPusher) PushExcept(room contract.RoomKey, _ string, event string, payload any) {
	p.pushes = append(p.pushes, pushRecord{room: room, event: event, payload: payload})
}

func newEngineForTest(t *testing.T) (*NotificationService, *recordingPusher) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	pusher := &recordingPusher{}
	engine := NewNotificationService(
		slog.Default(),
		repositories.NewNotificationRepository(db, slog.Default()),
		pusher,
	)
	return engine, pusher
}

func TestNotificationService_DropsSelfEvents(t *testing.T) {
	req := require.New(t)
	engine, pusher := newEngineForTest(t)

	err := engine.Process(context.Background(), domain.Event{
		Kind:        domain.KindPostLiked,
		ActorID:     "alice",
		RecipientID: "alice",
		EntityID:    "post-1",
		CreatedAt:   time.Now().UTC(),
	})
	req.NoError(err)
	req.Empty(pusher.pushes)

	views, err := engine.ListForUser("alice", 10)
	req.NoError(err)
	req.Empty(views, "a self event must leave no trace")
}

func TestNotificationService_AlwaysNotifyKindsStoreAndPush(t *testing.T) {
	req := require.New(t)
	engine, pusher := newEngineForTest(t)

	err := engine.Process(context.Background(), domain.Event{
		Kind:        domain.KindFollowed,
		ActorID:     "alice",
		RecipientID: "bob",
		CreatedAt:   time.Now().UTC(),
	})
	req.NoError(err)

	req.Len(pusher.pushes, 1)
	req.Equal(contract.UserRoom("bob"), pusher.pushes[0].room)
	req.Equal("notification", pusher.pushes[0].event)
	view, ok := pusher.pushes[0].payload.(NotificationView)
	req.True(ok)
	req.Equal(domain.KindFollowed, view.Kind)
	req.Equal([]string{"alice"}, view.ActorIDs)

	views, err := engine.ListForUser("bob", 10)
	req.NoError(err)
	req.Len(views, 1)
}

func TestNotificationService_AggregatesLikesByEntity(t *testing.T) {
	req := require.New(t)
	engine, pusher := newEngineForTest(t)

	for _, actor := range []string{"alice", "carol", "dave"} {
		err := engine.Process(context.Background(), domain.Event{
			Kind:        domain.KindPostLiked,
			ActorID:     actor,
			RecipientID: "bob",
			EntityID:    "post-42",
			CreatedAt:   time.Now().UTC(),
		})
		req.NoError(err)
	}

	views, err := engine.ListForUser("bob", 10)
	req.NoError(err)
	req.Len(views, 1, "three likes on one post collapse into a single row")
	req.Equal(3, views[0].Count)
	req.ElementsMatch([]string{"alice", "carol", "dave"}, views[0].ActorIDs)

	// Every merge pushed the updated row, so watchers see counts grow.
	req.Len(pusher.pushes, 3)
	last, ok := pusher.pushes[2].payload.(NotificationView)
	req.True(ok)
	req.Equal(3, last.Count)
}

func TestNotificationService_AggregationIsScopedToTheEntity(t *testing.T) {
	req := require.New(t)
	engine, _ := newEngineForTest(t)

	for _, entity := range []string{"post-1", "post-2"} {
		err := engine.Process(context.Background(), domain.Event{
			Kind:        domain.KindPostCommented,
			ActorID:     "alice",
			RecipientID: "bob",
			EntityID:    entity,
			CreatedAt:   time.Now().UTC(),
		})
		req.NoError(err)
	}

	views, err := engine.ListForUser("bob", 10)
	req.NoError(err)
	req.Len(views, 2)
}

func TestNotificationService_RefusesUnclassifiedKinds(t *testing.T) {
	req := require.New(t)
	engine, pusher := newEngineForTest(t)

	err := engine.Process(context.Background(), domain.Event{
		Kind:        domain.EventKind("reshared"),
		ActorID:     "alice",
		RecipientID: "bob",
		CreatedAt:   time.Now().UTC(),
	})
	req.ErrorIs(err, apperrors.ErrUnclassifiedEvent)
	req.Empty(pusher.pushes)
}

func TestNotificationService_MarkSeenChecksOwnership(t *testing.T) {
	req := require.New(t)
	engine, _ := newEngineForTest(t)

	err := engine.Process(context.Background(), domain.Event{
		Kind:        domain.KindFollowed,
		ActorID:     "alice",
		RecipientID: "bob",
		CreatedAt:   time.Now().UTC(),
	})
	req.NoError(err)

	views, err := engine.ListForUser("bob", 10)
	req.NoError(err)
	req.Len(views, 1)

	req.ErrorIs(engine.MarkSeen("mallory", views[0].ID), apperrors.ErrNotificationNotFound)

	req.NoError(engine.MarkSeen("bob", views[0].ID))
	views, err = engine.ListForUser("bob", 10)
	req.NoError(err)
	req.True(views[0].Seen)
}