package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peyk-chat/peyk-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, phone string) *store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), phone)
	if err != nil {
		t.Fatalf("failed to create user %s: %v", phone, err)
	}
	return user
}

func TestCreateUser_FindByPhone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := seedUser(t, s, "+15551230001")

	found, err := s.GetUserByPhone(ctx, "+15551230001")
	if err != nil {
		t.Fatalf("GetUserByPhone failed: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("expected user %d, got %d", created.ID, found.ID)
	}
	if found.Username != "" || found.OTPHash != "" || found.OTPExpiresAt != nil {
		t.Fatalf("expected fresh user with empty optional fields, got %+v", found)
	}

	if _, err := s.GetUserByPhone(ctx, "+15550000000"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAndClearOTP(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "+15551230002")

	expires := time.Now().Add(2 * time.Minute).UTC()
	if err := s.SetOTP(ctx, user.ID, "hash-value", expires); err != nil {
		t.Fatalf("SetOTP failed: %v", err)
	}

	loaded, err := s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if loaded.OTPHash != "hash-value" {
		t.Fatalf("expected stored hash, got %q", loaded.OTPHash)
	}
	if loaded.OTPExpiresAt == nil {
		t.Fatalf("expected stored expiry")
	}

	if err := s.ClearOTP(ctx, user.ID); err != nil {
		t.Fatalf("ClearOTP failed: %v", err)
	}
	loaded, err = s.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if loaded.OTPHash != "" || loaded.OTPExpiresAt != nil {
		t.Fatalf("expected cleared otp, got %+v", loaded)
	}
}

func TestUpdateUsername_DuplicateRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "+15551230003")
	bob := seedUser(t, s, "+15551230004")

	if err := s.UpdateUsername(ctx, alice.ID, "alice"); err != nil {
		t.Fatalf("UpdateUsername failed: %v", err)
	}
	if err := s.UpdateUsername(ctx, bob.ID, "alice"); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	// Empty usernames are not subject to the unique index.
	if err := s.UpdateUsername(ctx, bob.ID, ""); err != nil {
		t.Fatalf("UpdateUsername with empty value failed: %v", err)
	}
}

func TestListUsers_ExcludesCaller(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "+15551230005")
	seedUser(t, s, "+15551230006")
	seedUser(t, s, "+15551230007")

	members, err := s.ListUsers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 users, got %d", len(members))
	}
	for _, m := range members {
		if m.ID == alice.ID {
			t.Fatalf("caller must be excluded from listing")
		}
	}
}

func TestCreateRoom_MembersAndDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "+15551230010")
	bob := seedUser(t, s, "+15551230011")

	room, err := s.CreateRoom(ctx, store.RoomKindPrivate, "", []int64{alice.ID, bob.ID, alice.ID})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if room.Endpoint == "" {
		t.Fatalf("expected generated endpoint")
	}
	if room.Kind != store.RoomKindPrivate {
		t.Fatalf("expected private room, got %s", room.Kind)
	}
	if len(room.Members) != 2 {
		t.Fatalf("expected 2 members after dedup, got %d", len(room.Members))
	}
}

func TestListRoomsByMember_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "+15551230012")
	bob := seedUser(t, s, "+15551230013")

	first, err := s.CreateRoom(ctx, store.RoomKindGroup, "first room", []int64{alice.ID, bob.ID})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	second, err := s.CreateRoom(ctx, store.RoomKindGroup, "second room", []int64{alice.ID})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	rooms, err := s.ListRoomsByMember(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListRoomsByMember failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	if rooms[0].Endpoint != second.Endpoint || rooms[1].Endpoint != first.Endpoint {
		t.Fatalf("expected newest-first ordering, got %s then %s", rooms[0].Endpoint, rooms[1].Endpoint)
	}

	// Bob only belongs to the first room.
	bobRooms, err := s.ListRoomsByMember(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListRoomsByMember failed: %v", err)
	}
	if len(bobRooms) != 1 || bobRooms[0].Endpoint != first.Endpoint {
		t.Fatalf("expected bob to see only the first room, got %v", bobRooms)
	}
}

func TestGetRoomByEndpointForMember_UnknownAndForeignLookAlike(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "+15551230014")
	bob := seedUser(t, s, "+15551230015")

	room, err := s.CreateRoom(ctx, store.RoomKindPrivate, "", []int64{alice.ID})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if _, err := s.GetRoomByEndpointForMember(ctx, room.Endpoint, alice.ID); err != nil {
		t.Fatalf("member lookup failed: %v", err)
	}

	// A non-member and a missing endpoint produce the same error.
	_, foreignErr := s.GetRoomByEndpointForMember(ctx, room.Endpoint, bob.ID)
	_, unknownErr := s.GetRoomByEndpointForMember(ctx, "no-such-endpoint", bob.ID)
	if !errors.Is(foreignErr, store.ErrNotFound) || !errors.Is(unknownErr, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for both, got %v and %v", foreignErr, unknownErr)
	}
}

func TestMessages_ChronologicalWithSender(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "+15551230016")
	if err := s.UpdateUsername(ctx, alice.ID, "alice"); err != nil {
		t.Fatalf("UpdateUsername failed: %v", err)
	}

	room, err := s.CreateRoom(ctx, store.RoomKindPrivate, "", []int64{alice.ID})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second)
	for i, content := range []string{"one", "two", "three"} {
		msg := &store.Message{
			Endpoint:  room.Endpoint,
			SenderID:  alice.ID,
			Content:   content,
			Type:      store.MessageTypeText,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
		if msg.ID == 0 {
			t.Fatalf("expected assigned message id")
		}
	}

	messages, err := s.ListRoomMessages(ctx, room.Endpoint)
	if err != nil {
		t.Fatalf("ListRoomMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"one", "two", "three"} {
		if messages[i].Content != want {
			t.Fatalf("expected %q at index %d, got %q", want, i, messages[i].Content)
		}
		if messages[i].Sender == nil || messages[i].Sender.Username != "alice" {
			t.Fatalf("expected sender populated, got %+v", messages[i].Sender)
		}
	}
}
