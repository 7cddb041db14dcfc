package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/peyk-chat/peyk-server/internal/store"
)

// fakeDirectory is an in-memory Directory for hub tests.
type fakeDirectory struct {
	mu       sync.Mutex
	rooms    []*store.Room
	members  map[string][]int64
	messages map[string][]*store.Message
	nextID   int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		members:  make(map[string][]int64),
		messages: make(map[string][]*store.Message),
	}
}

func (d *fakeDirectory) addRoom(endpoint, name string, memberIDs ...int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.rooms = append(d.rooms, &store.Room{
		ID:        d.nextID,
		Endpoint:  endpoint,
		Kind:      store.RoomKindGroup,
		Name:      name,
		CreatedAt: time.Now().Add(time.Duration(d.nextID) * time.Second),
	})
	d.members[endpoint] = memberIDs
}

func (d *fakeDirectory) isMember(endpoint string, userID int64) bool {
	for _, id := range d.members[endpoint] {
		if id == userID {
			return true
		}
	}
	return false
}

func (d *fakeDirectory) CreateRoom(ctx context.Context, kind store.RoomKind, name string, memberIDs []int64) (*store.Room, error) {
	panic("not used in hub tests")
}

func (d *fakeDirectory) ListRoomsByMember(ctx context.Context, userID int64) ([]*store.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms := make([]*store.Room, 0)
	// newest first
	for i := len(d.rooms) - 1; i >= 0; i-- {
		if d.isMember(d.rooms[i].Endpoint, userID) {
			rooms = append(rooms, d.rooms[i])
		}
	}
	return rooms, nil
}

func (d *fakeDirectory) GetRoomByEndpointForMember(ctx context.Context, endpoint string, userID int64) (*store.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, room := range d.rooms {
		if room.Endpoint == endpoint && d.isMember(endpoint, userID) {
			return room, nil
		}
	}
	return nil, store.ErrNotFound
}

func (d *fakeDirectory) SaveMessage(ctx context.Context, msg *store.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	msg.ID = d.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	d.messages[msg.Endpoint] = append(d.messages[msg.Endpoint], msg)
	return nil
}

func (d *fakeDirectory) ListRoomMessages(ctx context.Context, endpoint string) ([]*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*store.Message(nil), d.messages[endpoint]...), nil
}

func testUser(id int64, username string) *store.User {
	return &store.User{ID: id, Phone: "+100000000" + username, Username: username}
}

func contextWithCleanup(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx, cancel
}

// startTestHub runs a hub over the fake directory until the test ends.
func startTestHub(t *testing.T, dir *fakeDirectory) *Hub {
	t.Helper()
	hub := NewHub(dir, NewMemoryPresence(), nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// connect registers an identified client and waits for its own online
// broadcast, so the caller knows registration completed.
func connect(t *testing.T, hub *Hub, id string, user *store.User) *Client {
	t.Helper()
	c := NewClient(id)
	c.AttachIdentity(user)
	hub.RegisterClient(c)

	ev := mustEvent(t, c, EventPresence)
	if ev.UserID != user.ID || !ev.IsOnline {
		t.Fatalf("unexpected online broadcast: %+v", ev)
	}
	return c
}

// mustEvent waits for the next event of the wanted kind, skipping others.
func mustEvent(t *testing.T, c *Client, kind EventKind) *Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("event stream closed while waiting for kind %d", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

// mustNoEvent asserts no event of the given kind arrives within the window.
func mustNoEvent(t *testing.T, c *Client, kind EventKind, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return
			}
			if ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-deadline:
			return
		}
	}
}
