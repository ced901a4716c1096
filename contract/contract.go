//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"wavelink/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// Worker doesn't protect itself. The supervisor recovers panics and
// restarts it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without forcing a Name method on the
// Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sink is one connected socket's outbound half. Send must not block:
// a full buffer returns ErrSlowConsumer and the transport drops the
// connection.
type Sink interface {
	Send(event string, payload any) error
}

// IRegistry tracks which connections are joined to which rooms. One user
// may hold several connections (multiple devices), so sessions are keyed
// by connection id, not user id.
type IRegistry interface {
	Subscribe(connID string, room RoomKey, sink Sink)
	Unsubscribe(connID string, room RoomKey)
	DropConnection(connID string)
	MirrorRoom(source, target RoomKey)
	SinksForRoom(room RoomKey) []Sink
	SinksForRoomExcept(room RoomKey, connID string) []Sink
}

// Pusher fans an event out to every sink currently in a room.
// Delivery is fire-and-forget: no ack, no retry, no offline queue.
type Pusher interface {
	Push(room RoomKey, event string, payload any)
	PushExcept(room RoomKey, connID string, event string, payload any)
}

// Limiter is per-actor admission control for outbound realtime messages.
// Implementations are keyed by user identity, never by connection.
type Limiter interface {
	Allow(ctx context.Context, actorID string) (bool, error)
}

// EventBus carries domain events from any producer to the notification
// decision engine. Publish never blocks the producer.
type EventBus interface {
	Publish(e domain.Event)
	Events() <-chan domain.Event
}
