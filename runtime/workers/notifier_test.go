package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wavelink/domain"
	apperrors "wavelink/errors"
	"wavelink/runtime"
)

type scriptedEngine struct {
	mu    sync.Mutex
	fail  int
	calls []domain.Event
	err   error
}

func (e *scriptedEngine) Process(_ context.Context, evt domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, evt)
	if e.fail > 0 {
		e.fail--
		return e.err
	}
	return nil
}

func (e *scriptedEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func runNotifier(t *testing.T, bus *runtime.Bus, engine *scriptedEngine) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = NewNotifier(slog.Default(), bus.Events(), engine).Run(ctx) }()
	t.Cleanup(cancel)
	return cancel
}

func waitForCalls(t *testing.T, engine *scriptedEngine, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for engine.callCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("engine saw %d calls, want %d", engine.callCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifier_DrainsBusIntoEngine(t *testing.T) {
	req := require.New(t)
	bus := runtime.NewBus(8, slog.Default())
	engine := &scriptedEngine{}
	runNotifier(t, bus, engine)

	bus.Publish(domain.Event{Kind: domain.KindFollowed, ActorID: "alice", RecipientID: "bob"})
	bus.Publish(domain.Event{Kind: domain.KindPostLiked, ActorID: "carol", RecipientID: "bob"})

	waitForCalls(t, engine, 2)
	req.Equal(domain.KindFollowed, engine.calls[0].Kind)
	req.Equal(domain.KindPostLiked, engine.calls[1].Kind)
}

func TestNotifier_RetriesPersistenceFaultOnce(t *testing.T) {
	req := require.New(t)
	bus := runtime.NewBus(8, slog.Default())
	engine := &scriptedEngine{fail: 1, err: fmt.Errorf("disk on fire")}
	runNotifier(t, bus, engine)

	bus.Publish(domain.Event{Kind: domain.KindFollowed, ActorID: "alice", RecipientID: "bob"})

	// First attempt fails, the retry succeeds. Exactly two calls.
	waitForCalls(t, engine, 2)
	time.Sleep(50 * time.Millisecond)
	req.Equal(2, engine.callCount())
}

func TestNotifier_DoesNotRetryClassificationGaps(t *testing.T) {
	req := require.New(t)
	bus := runtime.NewBus(8, slog.Default())
	engine := &scriptedEngine{
		fail: 10,
		err:  fmt.Errorf("%w: %q", apperrors.ErrUnclassifiedEvent, "reshared"),
	}
	runNotifier(t, bus, engine)

	bus.Publish(domain.Event{Kind: domain.EventKind("reshared"), ActorID: "alice", RecipientID: "bob"})
	bus.Publish(domain.Event{Kind: domain.EventKind("reshared"), ActorID: "carol", RecipientID: "bob"})

	// A retry cannot fix a missing classification rule, so each event
	// is attempted exactly once.
	waitForCalls(t, engine, 2)
	time.Sleep(50 * time.Millisecond)
	req.Equal(2, engine.callCount())
}
