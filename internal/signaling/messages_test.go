package signaling

import (
	"errors"
	"testing"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name string
		data string

		wantType messageType
		wantErr  bool
	}{
		{name: "join", data: `{"type":"join-room","room":"lobby"}`, wantType: messageTypeJoinRoom},
		{name: "join empty room", data: `{"type":"join-room","room":""}`, wantType: messageTypeJoinRoom},
		{name: "signal", data: `{"type":"signal","targetId":"abc","payload":{"sdp":"x"}}`, wantType: messageTypeSignal},
		{name: "signal with array payload", data: `{"type":"signal","targetId":"abc","payload":[1,2]}`, wantType: messageTypeSignal},
		{name: "chat", data: `{"type":"chat-message","text":"hi"}`, wantType: messageTypeChat},
		{name: "chat empty text", data: `{"type":"chat-message"}`, wantType: messageTypeChat},

		{name: "not json", data: `hello`, wantErr: true},
		{name: "unknown field", data: `{"type":"join-room","room":"lobby","extra":1}`, wantErr: true},
		{name: "trailing data", data: `{"type":"chat-message","text":"hi"}{}`, wantErr: true},
		{name: "join with target", data: `{"type":"join-room","room":"lobby","targetId":"abc"}`, wantErr: true},
		{name: "signal with room", data: `{"type":"signal","targetId":"abc","room":"lobby"}`, wantErr: true},
		{name: "chat with payload", data: `{"type":"chat-message","text":"hi","payload":{}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parseClientMessage([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if msg.Type != tt.wantType {
				t.Fatalf("type = %q, want %q", msg.Type, tt.wantType)
			}
		})
	}
}

func TestParseClientMessage_UnknownTypeIsSentinel(t *testing.T) {
	_, err := parseClientMessage([]byte(`{"type":"dance"}`))
	if !errors.Is(err, errUnknownMessageType) {
		t.Fatalf("err = %v, want errUnknownMessageType", err)
	}
}
