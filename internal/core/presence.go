package core

import "sync"

// Presence is the process-wide record of which users own live connections.
// It is deliberately an interface so a shared backing store can replace the
// in-memory table in a multi-instance deployment without touching call sites.
type Presence interface {
	// Record registers a connection for a user. Idempotent per connection id.
	Record(connID string, userID int64)

	// Release removes a connection and reports the user it belonged to.
	Release(connID string) (int64, bool)

	// IsOnline reports whether the user has at least one live connection.
	IsOnline(userID int64) bool

	// OnlineUserIDs returns the distinct ids of all online users.
	OnlineUserIDs() []int64
}

// MemoryPresence is the in-process implementation. It is rebuilt from zero on
// restart; nothing here is ever persisted.
type MemoryPresence struct {
	mu     sync.RWMutex
	conns  map[string]int64
	counts map[int64]int
}

// NewMemoryPresence constructs an empty presence table.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{
		conns:  make(map[string]int64),
		counts: make(map[int64]int),
	}
}

// Record registers a connection for a user.
func (p *MemoryPresence) Record(connID string, userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.conns[connID]; ok {
		if prev == userID {
			return
		}
		p.decrement(prev)
	}
	p.conns[connID] = userID
	p.counts[userID]++
}

// Release removes a connection and reports the user it belonged to.
func (p *MemoryPresence) Release(connID string) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	userID, ok := p.conns[connID]
	if !ok {
		return 0, false
	}
	delete(p.conns, connID)
	p.decrement(userID)
	return userID, true
}

func (p *MemoryPresence) decrement(userID int64) {
	if p.counts[userID] <= 1 {
		delete(p.counts, userID)
		return
	}
	p.counts[userID]--
}

// IsOnline reports whether the user has at least one live connection.
func (p *MemoryPresence) IsOnline(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.counts[userID] > 0
}

// OnlineUserIDs returns the distinct ids of all online users.
func (p *MemoryPresence) OnlineUserIDs() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]int64, 0, len(p.counts))
	for id := range p.counts {
		ids = append(ids, id)
	}
	return ids
}
