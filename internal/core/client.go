package core

import (
	"context"
	"sync"

	"github.com/peyk-chat/peyk-server/internal/store"
)

// Client is a live connection as seen by the core layer. Its identity is
// attached exactly once by the connection gate; every room or message
// operation waits on that attachment instead of polling for it.
type Client struct {
	ID       string
	Commands chan *Command

	ready    chan struct{}
	done     chan struct{}
	identity *store.User

	attachOnce sync.Once
	doneOnce   sync.Once

	mu     sync.Mutex
	events chan *Event
	closed bool

	// currentRoom is the endpoint of the single joined room, empty when
	// none. Guarded by the hub's room table lock.
	currentRoom string

	// dropped is set once the hub has torn the connection down. A late
	// dispatcher start must not re-register after that. Guarded by the
	// hub's lock, like currentRoom.
	dropped bool
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		events:   make(chan *Event, 32),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// AttachIdentity resolves the one-shot identity attachment. Later calls are
// no-ops, so the gate can never change an accepted identity.
func (c *Client) AttachIdentity(user *store.User) {
	c.attachOnce.Do(func() {
		c.identity = user
		close(c.ready)
	})
}

// AwaitIdentity blocks until the gate has attached an identity or the context
// expires. After it returns successfully the identity is immutable.
func (c *Client) AwaitIdentity(ctx context.Context) (*store.User, error) {
	select {
	case <-c.ready:
		return c.identity, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Identity returns the attached identity, or nil before attachment completes.
func (c *Client) Identity() *store.User {
	select {
	case <-c.ready:
		return c.identity
	default:
		return nil
	}
}

// Events is the stream the transport writes out to the peer.
func (c *Client) Events() <-chan *Event {
	return c.events
}

// send queues an event for delivery. Delivery is best effort: a full buffer
// or an already-closed client drops the event instead of blocking the caller.
func (c *Client) send(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// closeEvents ends the event stream, signalling the transport to close the
// connection. Safe to call more than once.
func (c *Client) closeEvents() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// stop halts the client's command dispatcher.
func (c *Client) stop() {
	c.doneOnce.Do(func() { close(c.done) })
}
