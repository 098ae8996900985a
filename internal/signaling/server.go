package signaling

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicemesh/signal-relay/internal/metrics"
	"github.com/voicemesh/signal-relay/internal/origin"
	"github.com/voicemesh/signal-relay/internal/ratelimit"
)

// Config wires together the runtime dependencies for the signaling service.
// Zero values fall back to sensible defaults so tests can use small struct
// literals.
type Config struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// AllowedOrigins restricts which browser origins may open the WebSocket.
	// Empty means same-host only; entries must be normalized origins or "*".
	AllowedOrigins []string

	// IdleTimeout closes connections that neither send messages nor answer
	// pings. PingInterval must be shorter than IdleTimeout.
	IdleTimeout  time.Duration
	PingInterval time.Duration

	// Inbound hardening.
	MaxMessageBytes      int64
	MaxMessagesPerSecond int

	// OutboundQueueLength bounds each client's outbound queue; a client that
	// falls that far behind is disconnected rather than having messages
	// reordered.
	OutboundQueueLength int

	// MaxClientsPerRoom rejects joins beyond the limit. <= 0 means unlimited.
	MaxClientsPerRoom int
}

// Server hosts the signaling WebSocket at GET /ws.
type Server struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	registry *Registry
	rooms    *Directory

	upgrader websocket.Upgrader

	idleTimeout  time.Duration
	pingInterval time.Duration

	maxMessageBytes      int64
	maxMessagesPerSecond int
	outboundQueueLength  int

	closeMu sync.Mutex
	closed  bool
}

func NewServer(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}
	pingInterval := cfg.PingInterval
	if pingInterval <= 0 || pingInterval >= idleTimeout {
		pingInterval = idleTimeout * 9 / 10
	}

	maxMessageBytes := cfg.MaxMessageBytes
	if maxMessageBytes <= 0 {
		maxMessageBytes = 64 * 1024
	}
	maxMessagesPerSecond := cfg.MaxMessagesPerSecond
	if maxMessagesPerSecond < 0 {
		maxMessagesPerSecond = 0
	}
	outboundQueueLength := cfg.OutboundQueueLength
	if outboundQueueLength <= 0 {
		outboundQueueLength = 256
	}

	allowedOrigins := cfg.AllowedOrigins

	return &Server{
		log:     log,
		metrics: cfg.Metrics,

		registry: NewRegistry(),
		rooms:    NewDirectory(cfg.MaxClientsPerRoom),

		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				header := strings.TrimSpace(r.Header.Get("Origin"))
				if header == "" {
					// Non-browser clients (tests, native peers) send no Origin.
					return true
				}
				normalized, host, ok := origin.Normalize(header)
				return ok && origin.Allowed(normalized, host, r.Host, allowedOrigins)
			},
		},

		idleTimeout:  idleTimeout,
		pingInterval: pingInterval,

		maxMessageBytes:      maxMessageBytes,
		maxMessagesPerSecond: maxMessagesPerSecond,
		outboundQueueLength:  outboundQueueLength,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Registry exposes the live-connection table, used by tests and diagnostics.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Rooms exposes the room directory, used by tests and diagnostics.
func (s *Server) Rooms() *Directory {
	return s.rooms
}

// Close disconnects every live client. In-flight handlers observe the closed
// transports and run their normal cleanup.
func (s *Server) Close() {
	s.closeMu.Lock()
	s.closed = true
	s.closeMu.Unlock()

	for _, c := range s.registry.Snapshot() {
		_ = c.conn.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.closeMu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error (e.g. origin rejection).
		return
	}

	var limiter *ratelimit.TokenBucket
	if s.maxMessagesPerSecond > 0 {
		n := int64(s.maxMessagesPerSecond)
		limiter = ratelimit.NewTokenBucket(ratelimit.RealClock{}, n, n)
	}

	c := newClient(conn, s.log, s.outboundQueueLength, limiter)
	id := s.registry.Register(c)
	s.incMetric(metrics.ClientConnected)
	s.log.Debug("client connected", "id", id, "remote_addr", conn.RemoteAddr().String())

	go c.writeLoop(s.pingInterval)
	s.readLoop(c)
}

// readLoop is the sole reader on the connection. Inbound messages are
// processed strictly in receipt order; awaiting the next frame is the only
// blocking point.
func (s *Server) readLoop(c *Client) {
	defer s.dropClient(c)

	c.conn.SetReadLimit(s.maxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))

		if c.limiter != nil && !c.limiter.Allow(1) {
			s.incMetric(metrics.DropReasonRateLimited)
			s.closeWith(c, websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		msg, err := parseClientMessage(data)
		if err != nil {
			s.incMetric(metrics.DropReasonBadMessage)
			if errors.Is(err, errUnknownMessageType) {
				// Unknown types are dropped, matching the tolerant event
				// dispatch browser clients expect.
				continue
			}
			s.closeWith(c, websocket.ClosePolicyViolation, "bad message")
			return
		}

		s.handleMessage(c, msg)
	}
}

// dropClient tears down a connection's registration, room membership, and
// outbound queue. Safe to call more than once; cleanup happens exactly once.
func (s *Server) dropClient(c *Client) {
	s.registry.Unregister(c.id)

	if res, ok := s.rooms.Leave(c.id); ok {
		s.announce(res.Peers, messageTypeUserDisconnected, c.id)
		s.log.Debug("client left room", "id", c.id, "room", res.Room, "remaining", len(res.Peers))
	}

	c.closeSend()
	_ = c.conn.Close()

	s.incMetric(metrics.ClientDisconnected)
	s.log.Debug("client disconnected", "id", c.id)
}

func (s *Server) closeWith(c *Client, code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

func (s *Server) incMetric(name string) {
	s.metrics.Inc(name)
}
