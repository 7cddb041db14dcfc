package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestPresenceMultipleDevices(t *testing.T) {
	p := NewMemoryPresence()

	p.Record("c1", 1)
	p.Record("c2", 1)
	p.Record("c3", 2)

	if !p.IsOnline(1) || !p.IsOnline(2) {
		t.Fatalf("expected users 1 and 2 online")
	}

	if userID, ok := p.Release("c1"); !ok || userID != 1 {
		t.Fatalf("release c1: got %d, %v", userID, ok)
	}
	if !p.IsOnline(1) {
		t.Fatalf("user 1 should stay online while c2 is connected")
	}

	if userID, ok := p.Release("c2"); !ok || userID != 1 {
		t.Fatalf("release c2: got %d, %v", userID, ok)
	}
	if p.IsOnline(1) {
		t.Fatalf("user 1 should be offline after last connection released")
	}

	ids := p.OnlineUserIDs()
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected online set: %v", ids)
	}
}

func TestPresenceRecordIdempotent(t *testing.T) {
	p := NewMemoryPresence()

	p.Record("c1", 1)
	p.Record("c1", 1)
	p.Record("c1", 1)

	if _, ok := p.Release("c1"); !ok {
		t.Fatalf("expected release to find c1")
	}
	if p.IsOnline(1) {
		t.Fatalf("repeated records must not inflate the connection count")
	}
}

func TestPresenceReleaseUnknown(t *testing.T) {
	p := NewMemoryPresence()
	if _, ok := p.Release("ghost"); ok {
		t.Fatalf("releasing an unknown connection must report absence")
	}
}

func TestPresenceConcurrentLifecycles(t *testing.T) {
	p := NewMemoryPresence()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			userID := int64(i % 5)
			p.Record(connID, userID)
			p.IsOnline(userID)
			p.OnlineUserIDs()
			p.Release(connID)
		}()
	}
	wg.Wait()

	if ids := p.OnlineUserIDs(); len(ids) != 0 {
		t.Fatalf("expected empty registry after all releases, got %v", ids)
	}
}
