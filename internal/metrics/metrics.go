package metrics

import "sync"

// Event names recorded by the relay. Drops are intentionally silent on the
// wire (best-effort delivery), so counters are the only place they surface.
const (
	ClientConnected    = "client_connected"
	ClientDisconnected = "client_disconnected"
	RoomJoined         = "room_joined"
	SignalRouted       = "signal_routed"
	ChatDelivered      = "chat_delivered"

	DropReasonInvalidRoom   = "drop_invalid_room"
	DropReasonRoomFull      = "drop_room_full"
	DropReasonUnknownTarget = "drop_unknown_target"
	DropReasonNoActiveRoom  = "drop_no_active_room"
	DropReasonRateLimited   = "drop_rate_limited"
	DropReasonSlowConsumer  = "drop_slow_consumer"
	DropReasonBadMessage    = "drop_bad_message"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// A production deployment is expected to scrape these through the Prometheus
// text handler; the in-process registry keeps the relay logic testable
// without a metrics backend.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
