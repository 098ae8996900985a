// Package signaling implements the room-scoped signaling relay: connection
// registry, room directory, signal routing, join/leave announcements, and the
// room chat channel, all served over a single WebSocket endpoint.
//
// The relay never inspects negotiation payloads; it forwards opaque blobs
// between named endpoints and keeps membership bookkeeping correct. Delivery
// is best-effort: unknown targets, roomless chat, and invalid room names are
// silent no-ops from the sender's point of view.
package signaling
