package core

import "github.com/peyk-chat/peyk-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRooms delivers a room-list snapshot, either as a direct reply or
	// as an unsolicited refresh after a peer's membership changed.
	EventRooms EventKind = iota
	// EventOnlineUsers delivers the online user-id snapshot.
	EventOnlineUsers
	// EventHistory delivers message history upon joining a room.
	EventHistory
	// EventMessage delivers a chat message broadcast to the room.
	EventMessage
	// EventPresence notifies all clients that a user went online or offline.
	EventPresence
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind        EventKind
	Rooms       []*store.Room
	OnlineUsers []int64
	Messages    []*store.Message
	Message     *store.Message
	UserID      int64
	IsOnline    bool
	Error       *CoreError
}
