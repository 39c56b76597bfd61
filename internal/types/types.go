// Package types holds the wire-level message frames shared by the hub and
// the websocket transport.
package types

// ClientMessage is one inbound frame: an event name plus a free-form
// payload. Events are flat; routing is by name only.
type ClientMessage struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// ServerMessage is one outbound frame. Data is whatever the emitting side
// produced; it is marshaled as-is.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
