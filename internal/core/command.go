package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandListRooms requests the caller's room-list snapshot and pushes
	// refreshed snapshots to every other online peer.
	CommandListRooms CommandKind = iota
	// CommandListOnlineUsers requests the current online user-id set.
	CommandListOnlineUsers
	// CommandJoinRoom switches the connection to the room behind an endpoint.
	CommandJoinRoom
	// CommandSendMessage persists a message in the current room and fans it out.
	CommandSendMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Endpoint string
	Content  string
}
