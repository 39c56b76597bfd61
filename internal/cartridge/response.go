package cartridge

// Payload is an event payload as sent over the wire.
type Payload map[string]any

// Events maps event names to their payloads.
type Events map[string]Payload

// Error is a rejection sent only to the connection that triggered an event.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the multi-channel emission descriptor a handler returns
// instead of touching the transport. Each channel is independently optional;
// one response may populate several (e.g. broadcast a score update and send
// a private lockout to one team).
type Response struct {
	// Broadcast goes to every connected client.
	Broadcast Events
	// ToSender goes only to the connection that triggered the event.
	ToSender Events
	// ToTeam goes to every connection on the sender's team, sender included.
	ToTeam Events
	// ToTeamOthers goes to the sender's team excluding the sender. Used for
	// live-typing/cursor style sync.
	ToTeamOthers Events
	// ToAdmin goes to admin-authenticated connections only.
	ToAdmin Events
	// ToSpecificTeam targets arbitrary teams by id, e.g. freezing a
	// penalized team that is not the sender's.
	ToSpecificTeam map[string]Events
	// Err, when set, is delivered to the sender as an "error" event.
	Err *Error
}

// NewResponse returns an empty response.
func NewResponse() *Response { return &Response{} }

// ErrorResponse returns a response carrying only a rejection.
func ErrorResponse(code, message string) *Response {
	return &Response{Err: &Error{Code: code, Message: message}}
}

func (r *Response) AddBroadcast(event string, p Payload) *Response {
	if r.Broadcast == nil {
		r.Broadcast = Events{}
	}
	r.Broadcast[event] = p
	return r
}

func (r *Response) AddToSender(event string, p Payload) *Response {
	if r.ToSender == nil {
		r.ToSender = Events{}
	}
	r.ToSender[event] = p
	return r
}

func (r *Response) AddToTeam(event string, p Payload) *Response {
	if r.ToTeam == nil {
		r.ToTeam = Events{}
	}
	r.ToTeam[event] = p
	return r
}

func (r *Response) AddToTeamOthers(event string, p Payload) *Response {
	if r.ToTeamOthers == nil {
		r.ToTeamOthers = Events{}
	}
	r.ToTeamOthers[event] = p
	return r
}

func (r *Response) AddToAdmin(event string, p Payload) *Response {
	if r.ToAdmin == nil {
		r.ToAdmin = Events{}
	}
	r.ToAdmin[event] = p
	return r
}

func (r *Response) AddToSpecificTeam(teamID, event string, p Payload) *Response {
	if r.ToSpecificTeam == nil {
		r.ToSpecificTeam = map[string]Events{}
	}
	if r.ToSpecificTeam[teamID] == nil {
		r.ToSpecificTeam[teamID] = Events{}
	}
	r.ToSpecificTeam[teamID][event] = p
	return r
}

// Empty reports whether the response has nothing to deliver.
func (r *Response) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Broadcast) == 0 && len(r.ToSender) == 0 && len(r.ToTeam) == 0 &&
		len(r.ToTeamOthers) == 0 && len(r.ToAdmin) == 0 && len(r.ToSpecificTeam) == 0 &&
		r.Err == nil
}
