package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type messageType string

const (
	// Client to server.
	messageTypeJoinRoom messageType = "join-room"
	messageTypeSignal   messageType = "signal"
	messageTypeChat     messageType = "chat-message"

	// Server to client. messageTypeSignal and messageTypeChat are reused on
	// the way back with server-derived sender attribution.
	messageTypeMyID             messageType = "my-id"
	messageTypeUserConnected    messageType = "user-connected"
	messageTypeUserDisconnected messageType = "user-disconnected"
)

// clientMessage is an inbound frame. Payload is an opaque negotiation blob
// (session description or connectivity candidate) the relay never parses.
type clientMessage struct {
	Type     messageType     `json:"type"`
	Room     string          `json:"room,omitempty"`
	TargetID string          `json:"targetId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// serverMessage is an outbound frame. ID carries the subject connection id
// for my-id/user-connected/user-disconnected; SenderID is always derived
// server-side, never echoed from client input.
type serverMessage struct {
	Type     messageType     `json:"type"`
	ID       string          `json:"id,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`
}

var errUnknownMessageType = errors.New("unknown message type")

// parseClientMessage strictly decodes an inbound frame: unknown fields and
// trailing data are rejected so protocol drift fails loudly instead of being
// silently ignored.
func parseClientMessage(data []byte) (clientMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg clientMessage
	if err := dec.Decode(&msg); err != nil {
		return clientMessage{}, err
	}
	if err := msg.validate(); err != nil {
		return clientMessage{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return clientMessage{}, fmt.Errorf("unexpected trailing data")
	}
	return msg, nil
}

func (m clientMessage) validate() error {
	switch m.Type {
	case messageTypeJoinRoom:
		// Room may be empty or whitespace; the directory rejects it silently.
		if m.TargetID != "" || m.Payload != nil || m.Text != "" {
			return fmt.Errorf("join-room message has unexpected fields")
		}
	case messageTypeSignal:
		// An empty targetId resolves to no live connection and is dropped by
		// the router, so only the frame shape is validated here.
		if m.Room != "" || m.Text != "" {
			return fmt.Errorf("signal message has unexpected fields")
		}
	case messageTypeChat:
		if m.Room != "" || m.TargetID != "" || m.Payload != nil {
			return fmt.Errorf("chat message has unexpected fields")
		}
	default:
		return fmt.Errorf("%w %q", errUnknownMessageType, m.Type)
	}
	return nil
}
