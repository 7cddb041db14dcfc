package core

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/store"
)

// defaultIdentityWait bounds how long a connection may sit without an
// attached identity before it is force-disconnected.
const defaultIdentityWait = 5 * time.Second

var linkPattern = regexp.MustCompile(`https?://`)

// Directory is the durable-store capability the hub needs. The store is the
// single source of truth for rooms and messages; the hub never caches them.
type Directory interface {
	store.RoomStore
	store.MessageStore
}

// Hub coordinates live connections: it records presence, enforces the
// single-active-room rule, fans out presence and room-list changes, and
// routes messages to room channels.
type Hub struct {
	dir          Directory
	presence     Presence
	log          *zerolog.Logger
	identityWait time.Duration

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]*roomChannel

	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub over the given store and presence registry.
func NewHub(dir Directory, presence Presence, logger *zerolog.Logger, identityWait time.Duration) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if identityWait <= 0 {
		identityWait = defaultIdentityWait
	}
	return &Hub{
		dir:          dir,
		presence:     presence,
		log:          logger,
		identityWait: identityWait,
		clients:      make(map[string]*Client),
		rooms:        make(map[string]*roomChannel),
		register:     make(chan *Client, 16),
		unregister:   make(chan *Client, 16),
	}
}

// RegisterClient hands a freshly accepted connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient tears down a connection's presence and room membership.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Run processes connection lifecycles until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			go h.runClient(ctx, c)
		case c := <-h.unregister:
			h.drop(c)
		}
	}
}

// runClient waits for the gate to attach an identity, records presence, and
// then dispatches the connection's commands in arrival order. Commands across
// different connections run concurrently; within one connection they are FIFO.
func (h *Hub) runClient(ctx context.Context, c *Client) {
	waitCtx, cancel := context.WithTimeout(ctx, h.identityWait)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()

	user, err := c.AwaitIdentity(waitCtx)
	if err != nil {
		h.log.Warn().Str("client_id", c.ID).Msg("identity attachment timed out, dropping connection")
		c.send(&Event{Kind: EventError, Error: ErrUnauthorized()})
		c.closeEvents()
		return
	}

	// The transport can unregister before this goroutine gets here. A
	// dropped client must not be re-inserted, and its presence must not be
	// recorded with nothing left to release it, so the check, the insert,
	// and the record happen under one critical section against drop.
	h.mu.Lock()
	if c.dropped {
		h.mu.Unlock()
		c.closeEvents()
		return
	}
	h.clients[c.ID] = c
	h.presence.Record(c.ID, user.ID)
	h.mu.Unlock()

	h.log.Info().Str("client_id", c.ID).Int64("user_id", user.ID).Msg("client online")
	h.broadcastPresence(user.ID, true)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case cmd := <-c.Commands:
			h.dispatch(ctx, c, user, cmd)
		}
	}
}

// drop releases everything a connection held: room membership, presence
// entry, and the event stream.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	c.dropped = true
	delete(h.clients, c.ID)
	if c.currentRoom != "" {
		if ch := h.rooms[c.currentRoom]; ch != nil {
			ch.remove(c)
			if ch.empty() {
				delete(h.rooms, c.currentRoom)
			}
		}
		c.currentRoom = ""
	}
	h.mu.Unlock()

	c.stop()
	c.closeEvents()

	if userID, ok := h.presence.Release(c.ID); ok {
		h.log.Info().Str("client_id", c.ID).Int64("user_id", userID).Msg("client offline")
		h.broadcastPresence(userID, false)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, user *store.User, cmd *Command) {
	switch cmd.Kind {
	case CommandListRooms:
		h.handleListRooms(ctx, c, user)
	case CommandListOnlineUsers:
		c.send(&Event{Kind: EventOnlineUsers, OnlineUsers: h.presence.OnlineUserIDs()})
	case CommandJoinRoom:
		h.handleJoinRoom(ctx, c, user, cmd.Endpoint)
	case CommandSendMessage:
		h.handleSendMessage(ctx, c, user, cmd.Content)
	}
}

// handleListRooms replies with the caller's snapshot and pushes a refreshed
// snapshot to every other online user's connections, so peers observe
// membership changes without re-requesting.
func (h *Hub) handleListRooms(ctx context.Context, c *Client, user *store.User) {
	rooms, err := h.dir.ListRoomsByMember(ctx, user.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("list rooms")
		c.send(&Event{Kind: EventError, Error: ErrInternal()})
		return
	}
	c.send(&Event{Kind: EventRooms, Rooms: rooms})

	for _, peer := range h.peersOf(user.ID) {
		peerUser := peer.Identity()
		if peerUser == nil {
			continue
		}
		peerRooms, err := h.dir.ListRoomsByMember(ctx, peerUser.ID)
		if err != nil {
			h.log.Warn().Err(err).Int64("user_id", peerUser.ID).Msg("refresh peer rooms")
			continue
		}
		peer.send(&Event{Kind: EventRooms, Rooms: peerRooms})
	}
}

// peersOf snapshots all registered clients not owned by the given user.
func (h *Hub) peersOf(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	peers := make([]*Client, 0, len(h.clients))
	for _, peer := range h.clients {
		if u := peer.Identity(); u != nil && u.ID != userID {
			peers = append(peers, peer)
		}
	}
	return peers
}

// handleJoinRoom validates membership, evicts the connection from its
// previous channel, joins the new one, and replies with message history.
// Membership is checked before any state changes, so a 404 leaves the
// connection exactly where it was.
func (h *Hub) handleJoinRoom(ctx context.Context, c *Client, user *store.User, endpoint string) {
	if endpoint == "" {
		c.send(&Event{Kind: EventError, Error: ErrValidation("endpoint is required")})
		return
	}

	if _, err := h.dir.GetRoomByEndpointForMember(ctx, endpoint, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.send(&Event{Kind: EventError, Error: ErrRoomNotFound()})
		} else {
			h.log.Error().Err(err).Str("endpoint", endpoint).Msg("room lookup")
			c.send(&Event{Kind: EventError, Error: ErrInternal()})
		}
		return
	}

	h.mu.Lock()
	if c.currentRoom != "" && c.currentRoom != endpoint {
		if prev := h.rooms[c.currentRoom]; prev != nil {
			prev.remove(c)
			if prev.empty() {
				delete(h.rooms, c.currentRoom)
			}
		}
	}
	ch := h.rooms[endpoint]
	if ch == nil {
		ch = newRoomChannel(endpoint)
		h.rooms[endpoint] = ch
	}
	ch.add(c)
	c.currentRoom = endpoint
	h.mu.Unlock()

	messages, err := h.dir.ListRoomMessages(ctx, endpoint)
	if err != nil {
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("load history")
		c.send(&Event{Kind: EventError, Error: ErrInternal()})
		return
	}
	c.send(&Event{Kind: EventHistory, Messages: messages})
}

// handleSendMessage persists the message under the connection's current room
// and fans it out to every connection joined to that room, the sender's
// included. The sender sees its own message only through the broadcast.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, user *store.User, content string) {
	h.mu.RLock()
	endpoint := c.currentRoom
	h.mu.RUnlock()

	if endpoint == "" {
		c.send(&Event{Kind: EventError, Error: ErrNoActiveRoom()})
		return
	}
	if strings.TrimSpace(content) == "" {
		c.send(&Event{Kind: EventError, Error: ErrValidation("message content is required")})
		return
	}

	msg := &store.Message{
		Endpoint: endpoint,
		SenderID: user.ID,
		Content:  content,
		Type:     classifyContent(content),
	}
	if err := h.dir.SaveMessage(ctx, msg); err != nil {
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("save message")
		c.send(&Event{Kind: EventError, Error: ErrInternal()})
		return
	}
	msg.Sender = user.Public()

	ev := &Event{Kind: EventMessage, Message: msg}
	h.mu.RLock()
	ch := h.rooms[endpoint]
	if ch != nil {
		ch.broadcast(ev)
	}
	h.mu.RUnlock()
}

// broadcastPresence notifies every registered connection, best effort.
func (h *Hub) broadcastPresence(userID int64, online bool) {
	ev := &Event{Kind: EventPresence, UserID: userID, IsOnline: online}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.send(ev)
	}
}

// classifyContent tags uploaded-asset URLs as file messages.
func classifyContent(content string) store.MessageType {
	if linkPattern.MatchString(content) {
		return store.MessageTypeFile
	}
	return store.MessageTypeText
}
