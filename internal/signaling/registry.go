package signaling

import (
	"sync"

	"github.com/google/uuid"
)

// Registry tracks every live connection keyed by its server-assigned id.
//
// Ids are UUIDs and never reused, so a stale id held by an in-flight signal
// can only ever resolve to not-found, never to a different connection.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Register assigns a fresh connection id and adds the client to the live
// table.
func (r *Registry) Register(c *Client) string {
	id := uuid.NewString()

	r.mu.Lock()
	r.clients[id] = c
	r.mu.Unlock()

	c.id = id
	return id
}

// Unregister removes the client from the live table. Unregistering an id
// that is already gone is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.clients, id)
	r.mu.Unlock()
}

// Lookup resolves a connection id. A missing entry means the target is gone
// and the caller drops whatever it was about to deliver.
func (r *Registry) Lookup(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot returns all live clients, used for shutdown.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
