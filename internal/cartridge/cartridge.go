// Package cartridge defines the contract every game module implements and
// the response envelope that decouples what a handler says from how it is
// delivered. The router and catalog consume this package; cartridges never
// see the transport.
package cartridge

// Context carries everything a handler may know about the sender. All
// identity fields are optional: unauthenticated or pre-registration events
// (team creation itself) arrive with them empty.
type Context struct {
	SessionID  string
	TeamID     string
	PlayerID   string
	TeamName   string
	PlayerName string
	IsAdmin    bool
}

// HandlerFunc handles one named event.
type HandlerFunc func(data Payload, ctx Context) *Response

// Cartridge is the pluggable game module contract.
type Cartridge interface {
	// ID is the phase identifier this cartridge owns (e.g. "SURVIVAL").
	ID() string
	// Name is the human-readable title.
	Name() string

	// EventNames lists every event this cartridge declares, player and
	// admin tables plus the global admin events.
	EventNames() []string

	// OnEnter is called exactly once when this cartridge becomes the
	// active phase. initData fields must all be treated as optional.
	OnEnter(initData Payload) *Response
	// OnExit is called exactly once before the next cartridge's OnEnter.
	OnExit() *Response

	// HandleEvent resolves a declared event to its handler and invokes it.
	HandleEvent(event string, data Payload, ctx Context) *Response

	// StateData is the full internal state, for trusted server-side use.
	StateData() Payload
	// ClientStateData is the spoiler-stripped view sent to clients.
	// Cartridges holding secrets (answers, orderings) must override it.
	ClientStateData() Payload
}

// Global admin events every cartridge accepts uniformly, regardless of the
// active phase: play/pause/skip style music controls.
var globalAdminEvents = map[string]HandlerFunc{
	"music_toggle":   globalBroadcast("music_toggle"),
	"music_next":     globalBroadcast("music_next"),
	"music_previous": globalBroadcast("music_previous"),
}

func globalBroadcast(event string) HandlerFunc {
	return func(_ Payload, _ Context) *Response {
		return NewResponse().AddBroadcast(event, Payload{})
	}
}

// GlobalAdminEventNames lists the events shared by all cartridges.
func GlobalAdminEventNames() []string {
	names := make([]string, 0, len(globalAdminEvents))
	for name := range globalAdminEvents {
		names = append(names, name)
	}
	return names
}

// Base carries the common cartridge plumbing: identity, the two handler
// tables, and dispatch including the global admin events. Concrete games
// embed it and fill the tables in their constructors.
type Base struct {
	GameID   string
	GameName string
	Players  map[string]HandlerFunc
	Admin    map[string]HandlerFunc
}

func (b *Base) ID() string   { return b.GameID }
func (b *Base) Name() string { return b.GameName }

func (b *Base) EventNames() []string {
	names := make([]string, 0, len(b.Players)+len(b.Admin)+len(globalAdminEvents))
	for name := range b.Players {
		names = append(names, name)
	}
	for name := range b.Admin {
		names = append(names, name)
	}
	names = append(names, GlobalAdminEventNames()...)
	return names
}

// HandleEvent checks player events first, then admin, then global.
func (b *Base) HandleEvent(event string, data Payload, ctx Context) *Response {
	if h, ok := b.Players[event]; ok {
		return h(data, ctx)
	}
	if h, ok := b.Admin[event]; ok {
		return h(data, ctx)
	}
	if h, ok := globalAdminEvents[event]; ok {
		return h(data, ctx)
	}
	return ErrorResponse("UNKNOWN_EVENT", "Unknown event: "+event)
}
