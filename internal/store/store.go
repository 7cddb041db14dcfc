package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	// Room lookups also return it when the caller is not a member, so the
	// two cases are indistinguishable to clients.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("duplicate username")
)

// User represents a registered account. OTP fields are only ever read by the
// auth service and never leave the process.
type User struct {
	ID           int64
	Phone        string
	Username     string
	ProfileImage string
	OTPHash      string
	OTPExpiresAt *time.Time
	CreatedAt    time.Time
}

// Member is the public-safe projection of a user embedded in rooms and
// messages. It carries no OTP or other secret fields.
type Member struct {
	ID           int64  `json:"id"`
	Phone        string `json:"phone"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Public returns the projection of u that is safe to send to clients.
func (u *User) Public() *Member {
	return &Member{
		ID:           u.ID,
		Phone:        u.Phone,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}

// RoomKind defines the shape of a room.
type RoomKind string

const (
	RoomKindPrivate RoomKind = "private"
	RoomKindGroup   RoomKind = "group"
)

// Room is a durable chat room. Endpoint is the externally shared identifier
// used by clients to join; the numeric ID never leaves the store layer.
type Room struct {
	ID        int64     `json:"-"`
	Endpoint  string    `json:"endpoint"`
	Kind      RoomKind  `json:"type"`
	Name      string    `json:"name,omitempty"`
	Members   []*Member `json:"users"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageType tags message content as plain text or an uploaded file URL.
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

// Message is a persisted chat message, immutable once created.
type Message struct {
	ID        int64       `json:"id"`
	Endpoint  string      `json:"endpoint"`
	SenderID  int64       `json:"-"`
	Sender    *Member     `json:"sender"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"timestamp"`
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser registers a user known only by phone number.
	CreateUser(ctx context.Context, phone string) (*User, error)

	// GetUserByPhone retrieves a user by phone number.
	GetUserByPhone(ctx context.Context, phone string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// ListUsers lists all users except the given one, public fields only.
	ListUsers(ctx context.Context, excludeID int64) ([]*Member, error)

	// UpdateUsername changes a user's display name.
	// Returns ErrDuplicateUsername if another user already holds it.
	UpdateUsername(ctx context.Context, userID int64, username string) error

	// UpdateProfileImage stores the URL of the user's avatar.
	UpdateProfileImage(ctx context.Context, userID int64, url string) error

	// SetOTP stores the hash and expiry of a freshly issued OTP code.
	SetOTP(ctx context.Context, userID int64, codeHash string, expiresAt time.Time) error

	// ClearOTP removes any stored OTP after successful verification.
	ClearOTP(ctx context.Context, userID int64) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room with a fresh endpoint and the given members.
	CreateRoom(ctx context.Context, kind RoomKind, name string, memberIDs []int64) (*Room, error)

	// ListRoomsByMember lists rooms the user belongs to, newest first,
	// with member lists populated.
	ListRoomsByMember(ctx context.Context, userID int64) ([]*Room, error)

	// GetRoomByEndpointForMember retrieves a room by endpoint, but only if
	// the user is a member. Unknown endpoint and non-membership both
	// return ErrNotFound.
	GetRoomByEndpointForMember(ctx context.Context, endpoint string, userID int64) (*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID and timestamp.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListRoomMessages retrieves a room's messages oldest first, with
	// sender populated.
	ListRoomMessages(ctx context.Context, endpoint string) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
