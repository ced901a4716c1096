package runtime

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"wavelink/contract"
)

func TestBroadcaster_PushReachesEveryRoomMember(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := contract.ConversationRoom("c1")

	alice := &recordingSink{}
	bob := &recordingSink{}
	registry.Subscribe("conn-a", room, alice)
	registry.Subscribe("conn-b", room, bob)

	broadcaster := NewBroadcaster(registry, logs.GetLoggerFromLevel(slog.LevelDebug))
	broadcaster.Push(room, "message", map[string]string{"content": "hi"})

	req.Equal([]string{"message"}, alice.frames)
	req.Equal([]string{"message"}, bob.frames)
}

func TestBroadcaster_FailedSinkDoesNotStopFanout(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := contract.ConversationRoom("c1")

	broken := &recordingSink{err: fmt.Errorf("send buffer full")}
	healthy := &recordingSink{}
	registry.Subscribe("conn-broken", room, broken)
	registry.Subscribe("conn-ok", room, healthy)

	broadcaster := NewBroadcaster(registry, logs.GetLoggerFromLevel(slog.LevelDebug))
	broadcaster.Push(room, "typing", nil)

	req.Equal([]string{"typing"}, healthy.frames, "fire-and-forget: one bad sink never blocks the rest")
}

func TestBroadcaster_PushExceptSkipsOrigin(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	room := contract.GroupRoom("g1")

	author := &recordingSink{}
	other := &recordingSink{}
	registry.Subscribe("conn-author", room, author)
	registry.Subscribe("conn-other", room, other)

	broadcaster := NewBroadcaster(registry, logs.GetLoggerFromLevel(slog.LevelDebug))
	broadcaster.PushExcept(room, "conn-author", "typing", nil)

	req.Empty(author.frames)
	req.Equal([]string{"typing"}, other.frames)
}
