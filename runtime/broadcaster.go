package runtime

import (
	"log/slog"

	"wavelink/contract"
)

// Broadcaster fans one wire event out to every sink of a room. Delivery
// is fire-and-forget: a sink that rejects the frame (slow consumer, gone
// socket) is logged and skipped, never retried. Sinks are required to be
// non-blocking, so the fan-out loop itself cannot stall on one slow
// client.
type Broadcaster struct {
	registry contract.IRegistry
	log      *slog.Logger
}

func NewBroadcaster(registry contract.IRegistry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

func (b *Broadcaster) Push(room contract.RoomKey, event string, payload any) {
	b.deliver(b.registry.SinksForRoom(room), room, event, payload)
}

func (b *Broadcaster) PushExcept(room contract.RoomKey, connID string, event string, payload any) {
	b.deliver(b.registry.SinksForRoomExcept(room, connID), room, event, payload)
}

func (b *Broadcaster) deliver(sinks []contract.Sink, room contract.RoomKey, event string, payload any) {
	for _, sink := range sinks {
		if err := sink.Send(event, payload); err != nil {
			b.log.Warn("dropping frame for unresponsive sink",
				"room", room, "event", event, "error", err)
		}
	}
}
