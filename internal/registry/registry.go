// Package registry is the single source of truth for live connections and
// topic membership. All mutation goes through its locked methods; broadcast
// paths read point-in-time snapshots so no lock is held during network I/O.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry maps connection IDs to connection metadata and topic names to
// member sets.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	topics      map[string]map[string]*Connection
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]*Connection),
	}
}

// Register assigns a fresh connection ID, stores the connection, and returns
// the ID.
func (r *Registry) Register(conn *Connection) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn.ID = uuid.NewString()
	conn.JoinedAt = time.Now().UTC()
	r.connections[conn.ID] = conn
	return conn.ID
}

// Unregister removes a connection from the registry and from every topic it
// was subscribed to. It is idempotent: unregistering an unknown ID is a
// no-op. The return value reports whether the ID was present, so callers can
// fire departure events exactly once even when two close signals race.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[id]; !ok {
		return false
	}

	delete(r.connections, id)
	for topic, members := range r.topics {
		delete(members, id)
		if len(members) == 0 {
			delete(r.topics, topic)
		}
	}
	return true
}

// Subscribe adds a registered connection to a topic. Subscribing an unknown
// ID reports false.
func (r *Registry) Subscribe(id, topic string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if !ok {
		return false
	}
	if r.topics[topic] == nil {
		r.topics[topic] = make(map[string]*Connection)
	}
	r.topics[topic][id] = conn
	return true
}

// Unsubscribe removes a connection from a topic. Unknown IDs and topics are
// no-ops.
func (r *Registry) Unsubscribe(id, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.topics[topic]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.topics, topic)
		}
	}
}

// Snapshot returns a point-in-time copy of a topic's membership for iteration
// without holding the lock during per-connection sends.
func (r *Registry) Snapshot(topic string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Connection, 0, len(r.topics[topic]))
	for _, conn := range r.topics[topic] {
		members = append(members, conn)
	}
	return members
}

// DisplayNames returns the sorted display names of a topic's current members.
func (r *Registry) DisplayNames(topic string) []string {
	names := lo.Map(r.Snapshot(topic), func(conn *Connection, _ int) string {
		return conn.DisplayName
	})
	sort.Strings(names)
	return names
}

// Get looks up a connection by ID.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[id]
	return conn, ok
}

// Count reports the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}
