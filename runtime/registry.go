// Package runtime hosts the shared in-memory state of the realtime
// layer (room membership, broadcast fan-out, the event bus) and the
// supervised background workers. No business rules live here.
package runtime

import (
	"sync"

	"wavelink/contract"
)

type roomSet map[contract.RoomKey]struct{}

// Registry tracks which connections sit in which rooms. Sessions are
// keyed by connection id so one user on several devices holds several
// independent entries; dropping one connection never touches the others.
type Registry struct {
	mu        sync.RWMutex
	sinks     map[string]contract.Sink
	rooms     map[contract.RoomKey]map[string]struct{}
	connRooms map[string]roomSet
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:     make(map[string]contract.Sink),
		rooms:     make(map[contract.RoomKey]map[string]struct{}),
		connRooms: make(map[string]roomSet),
	}
}

func (r *Registry) Subscribe(connID string, room contract.RoomKey, sink contract.Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[connID] = sink
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[string]struct{})
	}
	r.rooms[room][connID] = struct{}{}

	if _, ok := r.connRooms[connID]; !ok {
		r.connRooms[connID] = make(roomSet)
	}
	r.connRooms[connID][room] = struct{}{}
}

func (r *Registry) Unsubscribe(connID string, room contract.RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveRoom(connID, room)
}

// DropConnection removes every membership of a connection in one pass.
// Called unconditionally on disconnect, clean or not, so no partial
// membership can survive a dropped socket.
func (r *Registry) DropConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.connRooms[connID] {
		r.leaveRoom(connID, room)
	}
	delete(r.sinks, connID)
	delete(r.connRooms, connID)
}

// MirrorRoom joins every connection of source into target. A direct
// conversation created by the very send that addresses it has no members
// yet, so the participants' live connections (their personal rooms) are
// pulled in before the broadcast. Re-mirroring an existing membership is
// a no-op.
func (r *Registry) MirrorRoom(source, target contract.RoomKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[source]
	if !ok {
		return
	}
	if _, exists := r.rooms[target]; !exists {
		r.rooms[target] = make(map[string]struct{})
	}
	for connID := range members {
		r.rooms[target][connID] = struct{}{}
		if _, exists := r.connRooms[connID]; !exists {
			r.connRooms[connID] = make(roomSet)
		}
		r.connRooms[connID][target] = struct{}{}
	}
}

// leaveRoom assumes the write lock is held. Empty room entries are
// removed entirely to keep the map from leaking over time.
func (r *Registry) leaveRoom(connID string, room contract.RoomKey) {
	if members, ok := r.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, room)
	}
}

func (r *Registry) SinksForRoom(room contract.RoomKey) []contract.Sink {
	return r.SinksForRoomExcept(room, "")
}

// SinksForRoomExcept resolves a room's members to their live sinks,
// skipping the given connection (used to relay typing indicators to
// everyone but their author).
func (r *Registry) SinksForRoomExcept(room contract.RoomKey, exceptConnID string) []contract.Sink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	var active []contract.Sink
	for connID := range members {
		if connID == exceptConnID {
			continue
		}
		if sink, exists := r.sinks[connID]; exists {
			active = append(active, sink)
		}
	}
	return active
}

// Rooms reports the number of live rooms, for observability.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
