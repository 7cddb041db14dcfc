package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/peyk-chat/peyk-server/internal/store"
)

// schema is applied on startup. All statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	phone          TEXT NOT NULL UNIQUE,
	username       TEXT,
	profile_image  TEXT,
	otp_hash       TEXT,
	otp_expires_at DATETIME,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username
	ON users(username) WHERE username IS NOT NULL AND username != '';

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint   TEXT NOT NULL UNIQUE,
	kind       TEXT NOT NULL,
	name       TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS room_members (
	room_id   INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (room_id, user_id),
	FOREIGN KEY (room_id) REFERENCES rooms(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint   TEXT NOT NULL,
	sender_id  INTEGER NOT NULL,
	content    TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (sender_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_endpoint ON messages(endpoint, created_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens a SQLite database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup opens a SQLite database and runs an extra setup function after
// the schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser registers a user known only by phone number.
func (s *SQLiteStore) CreateUser(ctx context.Context, phone string) (*store.User, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO users (phone) VALUES (?)`, phone)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

const userColumns = `id, phone, COALESCE(username, ''), COALESCE(profile_image, ''),
	COALESCE(otp_hash, ''), otp_expires_at, created_at`

func scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var otpExpires sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Phone,
		&user.Username,
		&user.ProfileImage,
		&user.OTPHash,
		&otpExpires,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	if otpExpires.Valid {
		t := otpExpires.Time
		user.OTPExpiresAt = &t
	}
	return &user, nil
}

// GetUserByPhone retrieves a user by phone number.
func (s *SQLiteStore) GetUserByPhone(ctx context.Context, phone string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// ListUsers lists all users except the given one, public fields only.
func (s *SQLiteStore) ListUsers(ctx context.Context, excludeID int64) ([]*store.Member, error) {
	query := `
		SELECT id, phone, COALESCE(username, ''), COALESCE(profile_image, '')
		FROM users
		WHERE id != ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, excludeID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	members := make([]*store.Member, 0)
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.ID, &m.Phone, &m.Username, &m.ProfileImage); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// UpdateUsername changes a user's display name.
func (s *SQLiteStore) UpdateUsername(ctx context.Context, userID int64, username string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, userID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return store.ErrDuplicateUsername
		}
		return fmt.Errorf("update username: %w", err)
	}
	return nil
}

// UpdateProfileImage stores the URL of the user's avatar.
func (s *SQLiteStore) UpdateProfileImage(ctx context.Context, userID int64, url string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET profile_image = ? WHERE id = ?`, url, userID)
	if err != nil {
		return fmt.Errorf("update profile image: %w", err)
	}
	return nil
}

// SetOTP stores the hash and expiry of a freshly issued OTP code.
func (s *SQLiteStore) SetOTP(ctx context.Context, userID int64, codeHash string, expiresAt time.Time) error {
	query := `UPDATE users SET otp_hash = ?, otp_expires_at = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, codeHash, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	return nil
}

// ClearOTP removes any stored OTP after successful verification.
func (s *SQLiteStore) ClearOTP(ctx context.Context, userID int64) error {
	query := `UPDATE users SET otp_hash = NULL, otp_expires_at = NULL WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("clear otp: %w", err)
	}
	return nil
}

// ==== RoomStore implementation ====

// CreateRoom creates a room with a fresh endpoint and the given members.
func (s *SQLiteStore) CreateRoom(ctx context.Context, kind store.RoomKind, name string, memberIDs []int64) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	endpoint := uuid.NewString()

	var nameVal any
	if name != "" {
		nameVal = name
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (endpoint, kind, name) VALUES (?, ?, ?)`,
		endpoint, string(kind), nameVal,
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	seen := make(map[int64]struct{}, len(memberIDs))
	for _, userID := range memberIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_members (room_id, user_id) VALUES (?, ?)`,
			roomID, userID,
		); err != nil {
			return nil, fmt.Errorf("insert room member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.loadRoom(ctx, roomID)
}

func (s *SQLiteStore) loadRoom(ctx context.Context, roomID int64) (*store.Room, error) {
	query := `
		SELECT id, endpoint, kind, COALESCE(name, ''), created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, roomID).Scan(
		&room.ID, &room.Endpoint, &room.Kind, &room.Name, &room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	members, err := s.loadRoomMembers(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	room.Members = members
	return &room, nil
}

func (s *SQLiteStore) loadRoomMembers(ctx context.Context, roomID int64) ([]*store.Member, error) {
	query := `
		SELECT u.id, u.phone, COALESCE(u.username, ''), COALESCE(u.profile_image, '')
		FROM room_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ?
		ORDER BY m.joined_at, u.id
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query room members: %w", err)
	}
	defer rows.Close()

	members := make([]*store.Member, 0)
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.ID, &m.Phone, &m.Username, &m.ProfileImage); err != nil {
			return nil, fmt.Errorf("scan room member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// ListRoomsByMember lists rooms the user belongs to, newest first.
func (s *SQLiteStore) ListRoomsByMember(ctx context.Context, userID int64) ([]*store.Room, error) {
	query := `
		SELECT r.id
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = ?
		ORDER BY r.created_at DESC, r.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan room id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rooms := make([]*store.Room, 0, len(ids))
	for _, id := range ids {
		room, err := s.loadRoom(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// GetRoomByEndpointForMember retrieves a room by endpoint for a member.
func (s *SQLiteStore) GetRoomByEndpointForMember(ctx context.Context, endpoint string, userID int64) (*store.Room, error) {
	query := `
		SELECT r.id
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE r.endpoint = ? AND m.user_id = ?
	`
	var roomID int64
	err := s.db.QueryRowContext(ctx, query, endpoint, userID).Scan(&roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room by endpoint: %w", err)
	}
	return s.loadRoom(ctx, roomID)
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and fills in its ID and timestamp.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (endpoint, sender_id, content, type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.Endpoint, msg.SenderID, msg.Content, string(msg.Type), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

// ListRoomMessages retrieves a room's messages oldest first.
func (s *SQLiteStore) ListRoomMessages(ctx context.Context, endpoint string) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.endpoint, m.sender_id, m.content, m.type, m.created_at,
			u.id, u.phone, COALESCE(u.username, ''), COALESCE(u.profile_image, '')
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.endpoint = ?
		ORDER BY m.created_at, m.id
	`
	rows, err := s.db.QueryContext(ctx, query, endpoint)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		var sender store.Member
		err := rows.Scan(
			&msg.ID, &msg.Endpoint, &msg.SenderID, &msg.Content, &msg.Type, &msg.CreatedAt,
			&sender.ID, &sender.Phone, &sender.Username, &sender.ProfileImage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = &sender
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
