package signaling

import (
	"errors"

	"github.com/gorilla/websocket"

	"github.com/voicemesh/signal-relay/internal/metrics"
)

func (s *Server) handleMessage(c *Client, msg clientMessage) {
	switch msg.Type {
	case messageTypeJoinRoom:
		s.handleJoin(c, msg)
	case messageTypeSignal:
		s.handleSignal(c, msg)
	case messageTypeChat:
		s.handleChat(c, msg)
	}
}

func (s *Server) handleJoin(c *Client, msg clientMessage) {
	res, err := s.rooms.Join(c.id, msg.Room)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRoomName):
			s.incMetric(metrics.DropReasonInvalidRoom)
		case errors.Is(err, ErrRoomFull):
			s.incMetric(metrics.DropReasonRoomFull)
		}
		// Rejections stay local: no reply, no cross-client notification.
		s.log.Debug("join rejected", "id", c.id, "err", err)
		return
	}

	// The client learns its own id from my-id, re-sent on every successful
	// join so rejoining clients can recover it.
	s.deliver(c, serverMessage{Type: messageTypeMyID, ID: c.id})

	if res.Rejoined {
		return
	}

	s.incMetric(metrics.RoomJoined)
	s.log.Info("client joined room", "id", c.id, "room", res.Room, "members", res.Members)

	// The implicit leave of the previous room is announced there first, then
	// the join is announced to the members that were already present. Both
	// snapshots were taken atomically with the directory mutation, so no
	// member is missed and no departed member is included.
	if res.Left != "" {
		s.announce(res.LeftPeers, messageTypeUserDisconnected, c.id)
	}
	s.announce(res.Peers, messageTypeUserConnected, c.id)
}

// handleSignal forwards an opaque negotiation envelope to one addressed
// recipient. Pure routing: the payload is never inspected, an unknown target
// is a silent drop, and there is no retry or error path back to the sender.
func (s *Server) handleSignal(c *Client, msg clientMessage) {
	target, ok := s.registry.Lookup(msg.TargetID)
	if !ok {
		s.incMetric(metrics.DropReasonUnknownTarget)
		return
	}

	s.deliver(target, serverMessage{
		Type:     messageTypeSignal,
		SenderID: c.id,
		Payload:  msg.Payload,
	})
	s.incMetric(metrics.SignalRouted)
}

// handleChat broadcasts a text message to every member of the sender's room,
// including the sender: the echo is how the sender's UI learns the message
// was accepted and where it orders among others.
func (s *Server) handleChat(c *Client, msg clientMessage) {
	room, members, ok := s.rooms.ChatScope(c.id)
	if !ok {
		s.incMetric(metrics.DropReasonNoActiveRoom)
		return
	}

	out := serverMessage{
		Type:     messageTypeChat,
		SenderID: c.id,
		Text:     msg.Text,
	}
	for _, id := range members {
		if target, ok := s.registry.Lookup(id); ok {
			s.deliver(target, out)
		}
	}

	s.incMetric(metrics.ChatDelivered)
	s.log.Debug("chat relayed", "id", c.id, "room", room, "members", len(members))
}

// announce fans a membership event out to the given peers.
func (s *Server) announce(peers []string, typ messageType, subject string) {
	msg := serverMessage{Type: typ, ID: subject}
	for _, id := range peers {
		if target, ok := s.registry.Lookup(id); ok {
			s.deliver(target, msg)
		}
	}
}

// deliver enqueues a frame for a client. A full queue means the client has
// stopped draining its connection; it is disconnected rather than having
// messages reordered or selectively dropped.
func (s *Server) deliver(c *Client, msg serverMessage) {
	if c.enqueue(msg) {
		return
	}
	s.incMetric(metrics.DropReasonSlowConsumer)
	s.log.Warn("disconnecting slow consumer", "id", c.id)
	s.closeWith(c, websocket.CloseGoingAway, "outbound queue overflow")
	_ = c.conn.Close()
}
