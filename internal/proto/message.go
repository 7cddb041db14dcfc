package proto

import (
	"encoding/json"
	"time"

	"github.com/peyk-chat/peyk-server/internal/store"
)

// Event names shared with the browser client.
const (
	EventGetRooms       = "get-rooms"
	EventGetOnlineUsers = "get-online-users"
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "send-message"
	EventReceiveMessage = "receive-message"
	EventOnlineStatus   = "user-online-status"
	EventError          = "error"
)

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for frames sent to the client. Replies reuse the
// request's event name; broadcasts use their own.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// JoinRoomData asks to switch to the room behind an endpoint.
type JoinRoomData struct {
	Endpoint string `json:"endpoint"`
}

// SendMessageData carries a chat message from the client.
type SendMessageData struct {
	Content string `json:"content"`
}

// RoomsData is the reply to get-rooms and the unsolicited refresh push.
type RoomsData struct {
	Rooms []*store.Room `json:"rooms"`
}

// OnlineUsersData is the reply to get-online-users.
type OnlineUsersData struct {
	OnlineUsers []int64 `json:"onlineUsers"`
}

// MessagesData is the history reply to joinRoom, oldest first.
type MessagesData struct {
	Messages []*store.Message `json:"messages"`
}

// MessageData is the receive-message broadcast payload.
type MessageData struct {
	Message *store.Message `json:"message"`
}

// OnlineStatusData announces a presence change to all connections.
type OnlineStatusData struct {
	UserID   int64 `json:"userId"`
	IsOnline bool  `json:"isOnline"`
}

// ErrorData is the uniform failure shape on the error channel.
type ErrorData struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

// NewErrorData stamps a failure with the current time.
func NewErrorData(statusCode int, message string) ErrorData {
	return ErrorData{
		StatusCode: statusCode,
		Success:    false,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}
