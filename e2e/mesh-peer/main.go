// Command mesh-peer is a manual E2E client for the signaling relay. Run two
// instances against the same relay and room: the first peer offers to each
// newcomer, the pair negotiates over relayed signal frames, and both ends
// print whatever arrives on the "chat" data channel.
//
//	RELAY_WS_URL=ws://127.0.0.1:8080/ws ROOM=lobby go run ./e2e/mesh-peer
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

type clientFrame struct {
	Type     string          `json:"type"`
	Room     string          `json:"room,omitempty"`
	TargetID string          `json:"targetId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`
}

type serverFrame struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	SenderID string          `json:"senderId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Text     string          `json:"text,omitempty"`
}

type signalEnvelope struct {
	SDP *webrtc.SessionDescription `json:"sdp"`
}

type peer struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	api *webrtc.API
	id  string

	mu    sync.Mutex
	links map[string]*webrtc.PeerConnection
}

func main() {
	wsURL := envOrDefault("RELAY_WS_URL", "ws://127.0.0.1:8080/ws")
	room := envOrDefault("ROOM", "lobby")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", wsURL, err)
		os.Exit(1)
	}
	defer conn.Close()

	p := &peer{
		conn:  conn,
		api:   webrtc.NewAPI(),
		links: map[string]*webrtc.PeerConnection{},
	}

	if err := p.writeFrame(clientFrame{Type: "join-room", Room: room}); err != nil {
		fmt.Fprintf(os.Stderr, "join: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- p.readLoop() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "relay connection lost: %v\n", err)
			os.Exit(1)
		}
	}
}

func (p *peer) readLoop() error {
	for {
		var msg serverFrame
		if err := p.conn.ReadJSON(&msg); err != nil {
			return err
		}

		switch msg.Type {
		case "my-id":
			p.id = msg.ID
			fmt.Printf("READY %s\n", p.id)
		case "user-connected":
			fmt.Printf("peer joined: %s\n", msg.ID)
			if err := p.offer(msg.ID); err != nil {
				fmt.Fprintf(os.Stderr, "offer to %s: %v\n", msg.ID, err)
			}
		case "user-disconnected":
			fmt.Printf("peer left: %s\n", msg.ID)
			p.dropLink(msg.ID)
		case "signal":
			if err := p.handleSignal(msg.SenderID, msg.Payload); err != nil {
				fmt.Fprintf(os.Stderr, "signal from %s: %v\n", msg.SenderID, err)
			}
		case "chat-message":
			fmt.Printf("[relay chat] %s: %s\n", msg.SenderID, msg.Text)
		}
	}
}

// offer opens a PeerConnection toward a newcomer with a chat data channel and
// relays the gathered offer.
func (p *peer) offer(targetID string) error {
	pc, err := p.newLink(targetID)
	if err != nil {
		return err
	}

	dc, err := pc.CreateDataChannel("chat", nil)
	if err != nil {
		return err
	}
	p.attachChat(targetID, dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return err
	}
	<-gathered

	return p.sendDescription(targetID, pc.LocalDescription())
}

func (p *peer) handleSignal(senderID string, payload json.RawMessage) error {
	var env signalEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	if env.SDP == nil {
		return fmt.Errorf("envelope carries no description")
	}

	switch env.SDP.Type {
	case webrtc.SDPTypeOffer:
		pc, err := p.newLink(senderID)
		if err != nil {
			return err
		}
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			p.attachChat(senderID, dc)
		})

		if err := pc.SetRemoteDescription(*env.SDP); err != nil {
			return err
		}
		answer, err := pc.CreateAnswer(nil)
		if err != nil {
			return err
		}
		gathered := webrtc.GatheringCompletePromise(pc)
		if err := pc.SetLocalDescription(answer); err != nil {
			return err
		}
		<-gathered

		return p.sendDescription(senderID, pc.LocalDescription())

	case webrtc.SDPTypeAnswer:
		p.mu.Lock()
		pc := p.links[senderID]
		p.mu.Unlock()
		if pc == nil {
			return fmt.Errorf("answer from unknown peer")
		}
		return pc.SetRemoteDescription(*env.SDP)

	default:
		return fmt.Errorf("unexpected description type %s", env.SDP.Type)
	}
}

func (p *peer) newLink(targetID string) (*webrtc.PeerConnection, error) {
	pc, err := p.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.links[targetID] = pc
	p.mu.Unlock()

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		fmt.Printf("link %s: %s\n", targetID, state)
	})
	return pc, nil
}

func (p *peer) dropLink(targetID string) {
	p.mu.Lock()
	pc := p.links[targetID]
	delete(p.links, targetID)
	p.mu.Unlock()
	if pc != nil {
		_ = pc.Close()
	}
}

func (p *peer) attachChat(remoteID string, dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		_ = dc.SendText(fmt.Sprintf("hello from %s at %s", p.id, time.Now().Format(time.RFC3339)))
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fmt.Printf("[p2p chat] %s: %s\n", remoteID, msg.Data)
	})
}

func (p *peer) sendDescription(targetID string, desc *webrtc.SessionDescription) error {
	payload, err := json.Marshal(signalEnvelope{SDP: desc})
	if err != nil {
		return err
	}
	return p.writeFrame(clientFrame{Type: "signal", TargetID: targetID, Payload: payload})
}

// writeFrame serializes writes; frames are sent from both the read loop and
// signal handlers.
func (p *peer) writeFrame(frame clientFrame) error {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	return p.conn.WriteJSON(frame)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
