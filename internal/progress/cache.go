package progress

import "sync"

// SessionCache is an in-process cache of session snapshots keyed by
// session id. It is constructed by the caller and injected into the
// Tracker; concurrent writers to the same id are last-write-wins.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessionCache creates an empty cache
func NewSessionCache() *SessionCache {
	return &SessionCache{sessions: make(map[string]Session)}
}

// Get returns the cached session for id, if present
func (c *SessionCache) Get(id string) (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Put stores a session snapshot
func (c *SessionCache) Put(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID] = s
}

// Len returns the number of cached sessions
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
