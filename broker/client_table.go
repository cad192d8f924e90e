package broker

import (
	"sync"

	"github.com/axmq/broker/session"
)

// ClientTable is the broker-owned mapping client_id → Session reference
// (spec.md §3). At most one live session exists per client_id: a new
// CONNECT presenting an in-use client_id evicts the prior session before
// the new one becomes Active (spec.md §4.3's corrected duplicate-client_id
// behavior, see DESIGN.md's Open Question resolution).
type ClientTable struct {
	mu      sync.Mutex
	clients map[string]*session.Session
}

// NewClientTable constructs an empty client table.
func NewClientTable() *ClientTable {
	return &ClientTable{clients: make(map[string]*session.Session)}
}

// Register installs sess under clientID, evicting and returning whatever
// session previously held that client_id (nil if none). The caller is
// responsible for closing the evicted session and unregistering its
// subscriptions; ClientTable only tracks the mapping.
func (t *ClientTable) Register(clientID string, sess *session.Session) *session.Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	prior := t.clients[clientID]
	t.clients[clientID] = sess
	return prior
}

// Get returns the session currently registered for clientID, if any.
func (t *ClientTable) Get(clientID string) (*session.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.clients[clientID]
	return sess, ok
}

// RemoveIfCurrent removes clientID from the table, but only if it still
// points at sess — a session that lost a duplicate-CONNECT eviction race
// must not delete the entry the winner just installed (spec.md §4.3's
// Closed entry action: "remove client_id from the Client Table (only if
// still pointing at this session)").
func (t *ClientTable) RemoveIfCurrent(clientID string, sess *session.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clients[clientID] == sess {
		delete(t.clients, clientID)
	}
}

// Count returns the number of registered sessions.
func (t *ClientTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}
