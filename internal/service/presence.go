package service

import (
	"sync"
)

// PresenceTracker holds the transient online/offline state of other users.
// It is populated only by channel events, never persisted, and reset when
// the connection drops: a user with no recorded event is offline.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]bool
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		online: make(map[string]bool),
	}
}

// Set records a presence event for a user.
func (p *PresenceTracker) Set(userID string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if online {
		p.online[userID] = true
	} else {
		delete(p.online, userID)
	}
}

// IsOnline reports a user's tracked presence, defaulting to offline until
// an event arrives.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.online[userID]
}

// Reset invalidates all tracked presence. Called on disconnect so stale
// state is not presented as live.
func (p *PresenceTracker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = make(map[string]bool)
}
