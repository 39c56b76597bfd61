// Package hub is the connection layer: it tracks every live websocket
// client, implements the router's fan-out surface, and handles the
// platform events that exist in every phase (team lifecycle, admin
// controls, TV sync, reactions).
package hub

import (
	"crypto/subtle"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
	"github.com/y2kparty/console-backend/internal/types"
)

// sendBuffer is per-client. A client that cannot drain this many frames is
// dropped rather than allowed to stall everyone else.
const sendBuffer = 64

// Client is one websocket connection known to the hub.
type Client struct {
	ID      string
	isAdmin bool
	send    chan []byte
}

// Send is the frame channel the transport writer drains.
func (c *Client) Send() <-chan []byte { return c.send }

// StateSource is the slice of the router the hub needs: transitions,
// dispatch, and the sanitized view of the active phase.
type StateSource interface {
	Current() string
	ClientStateData() cartridge.Payload
	SetState(newID string, initData cartridge.Payload) error
	Dispatch(event string, data cartridge.Payload, sessionID string, isAdmin bool)
}

// Hub owns the client set. It is created before the router (the router
// needs it as an Emitter); AttachRouter closes the loop before any client
// connects.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	reg           *registry.Registry
	router        StateSource
	adminPassword string
	log           *zap.Logger
}

func New(reg *registry.Registry, adminPassword string, log *zap.Logger) *Hub {
	return &Hub{
		clients:       make(map[string]*Client),
		reg:           reg,
		adminPassword: adminPassword,
		log:           log,
	}
}

// AttachRouter must be called once, before the first Register.
func (h *Hub) AttachRouter(r StateSource) { h.router = r }

// Register adds a connection and, when its session id is already bound to a
// live team, replays the full sync so a page refresh is seamless.
func (h *Hub) Register(sessionID string) *Client {
	c := &Client{ID: sessionID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[sessionID] = c
	h.mu.Unlock()

	h.log.Info("client connected", zap.String("session_id", sessionID))

	if sess, ok := h.reg.SessionFor(sessionID); ok {
		if _, live := h.reg.Team(sess.TeamID); live {
			h.reg.Touch(sessionID)
			h.sendSync(sessionID, sess.TeamID, sess.PlayerID)
		}
	}
	return c
}

// Unregister drops a connection. The session binding in the registry
// survives; only the sweep or a kick removes it.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	delete(h.clients, sessionID)
	h.mu.Unlock()
	h.log.Info("client disconnected", zap.String("session_id", sessionID))
}

// HandleMessage routes one inbound frame: platform events are handled
// here, everything else goes to the router for the active cartridge.
func (h *Hub) HandleMessage(sessionID string, msg types.ClientMessage) {
	data := cartridge.Payload(msg.Data)
	if data == nil {
		data = cartridge.Payload{}
	}
	h.reg.Touch(sessionID)

	switch msg.Event {
	case "create_team":
		h.handleCreateTeam(sessionID, data)
	case "join_team":
		h.handleJoinTeam(sessionID, data)
	case "rejoin_session":
		h.handleRejoinSession(sessionID, data)
	case "request_tv_sync":
		h.handleTVSync(sessionID)
	case "admin_auth":
		h.handleAdminAuth(sessionID, data)
	case "set_state":
		if !h.requireAdmin(sessionID) {
			return
		}
		if err := h.router.SetState(data.String("new_state"), subPayload(data, "state_data")); err != nil {
			h.log.Error("set_state failed", zap.Error(err))
		}
	case "add_points":
		if !h.requireAdmin(sessionID) {
			return
		}
		if h.reg.AddPoints(data.String("team_id"), data.Int("points", 0), data.String("reason")) {
			h.broadcastScores()
		}
	case "reset_game":
		if !h.requireAdmin(sessionID) {
			return
		}
		if !data.Bool("confirm", false) {
			return
		}
		h.reg.ResetGame(data.Bool("preserve_teams", false))
		if err := h.router.SetState(registry.DefaultState, cartridge.Payload{}); err != nil {
			h.log.Error("reset transition failed", zap.Error(err))
		}
	case "kick_team":
		if !h.requireAdmin(sessionID) {
			return
		}
		h.handleKickTeam(data.String("team_id"))
	case "toggle_qr_code":
		if !h.requireAdmin(sessionID) {
			return
		}
		h.Broadcast("qr_visibility", cartridge.Payload{"visible": data.Bool("visible", false)})
	case "select_avatar":
		h.handleSelectAvatar(data)
	case "send_reaction":
		h.Broadcast("reaction", data)
	case "send_chat_message":
		h.Broadcast("chat_message", data)
	default:
		h.router.Dispatch(msg.Event, data, sessionID, h.isAdmin(sessionID))
	}
}

func (h *Hub) handleCreateTeam(sessionID string, data cartridge.Payload) {
	result := h.reg.CreateTeam(data.String("team_name"), data.String("player_name"), sessionID)
	h.ToSession(sessionID, "creation_result", resultPayload(result))
	if result.Success {
		h.broadcastScores()
	}
}

func (h *Hub) handleJoinTeam(sessionID string, data cartridge.Payload) {
	result := h.reg.JoinTeam(data.String("join_code"), data.String("player_name"), sessionID)
	h.ToSession(sessionID, "join_result", resultPayload(result))
	if result.Success {
		h.ToTeam(result.TeamID, "player_joined", cartridge.Payload{
			"player_id":   result.PlayerID,
			"player_name": result.PlayerName,
			"players":     result.Players,
		})
		h.broadcastScores()
	}
}

func (h *Hub) handleRejoinSession(sessionID string, data cartridge.Payload) {
	teamID := data.String("team_id")
	playerID := data.String("player_id")
	if !h.reg.Reassociate(sessionID, teamID, playerID) {
		h.ToSession(sessionID, "rejoin_result", cartridge.Payload{
			"success": false,
			"message": "Invalid session/team",
		})
		return
	}
	h.ToSession(sessionID, "rejoin_result", cartridge.Payload{"success": true})
	h.sendSync(sessionID, teamID, playerID)
}

func (h *Hub) handleTVSync(sessionID string) {
	h.ToSession(sessionID, "state_change", cartridge.Payload{
		"current_state": h.router.Current(),
		"state_data":    h.router.ClientStateData(),
	})
	h.ToSession(sessionID, "score_update", h.scoresPayload())
}

func (h *Hub) handleAdminAuth(sessionID string, data cartridge.Payload) {
	password := data.String("password")
	ok := subtle.ConstantTimeCompare([]byte(password), []byte(h.adminPassword)) == 1

	message := "Access denied"
	if ok {
		message = "Access granted"
	}
	h.ToSession(sessionID, "admin_auth_result", cartridge.Payload{
		"success": ok,
		"message": message,
	})
	if !ok {
		h.log.Warn("admin auth rejected", zap.String("session_id", sessionID))
		return
	}

	h.mu.Lock()
	if c, live := h.clients[sessionID]; live {
		c.isAdmin = true
	}
	h.mu.Unlock()

	h.ToSession(sessionID, "state_change", cartridge.Payload{
		"current_state": h.router.Current(),
	})
	h.ToSession(sessionID, "score_update", h.scoresPayload())
}

func (h *Hub) handleKickTeam(teamID string) {
	// Resolve the team's connections before the registry forgets them.
	members := h.teamSessions(teamID)
	if !h.reg.KickTeam(teamID) {
		return
	}
	for _, sid := range members {
		h.ToSession(sid, "team_kicked", cartridge.Payload{"message": "TERMINATED"})
	}
	h.broadcastScores()
}

func (h *Hub) handleSelectAvatar(data cartridge.Payload) {
	teamID := data.String("team_id")
	avatarID := data.String("avatar_id")
	if !h.reg.SetAvatar(teamID, avatarID) {
		return
	}
	teamName := ""
	if team, ok := h.reg.Team(teamID); ok {
		teamName = team.Name
	}
	h.Broadcast("avatar_updated", cartridge.Payload{
		"team_id":   teamID,
		"team_name": teamName,
		"avatar_id": avatarID,
	})
}

// sendSync replays identity, phase, and scores to one reconnecting client.
func (h *Hub) sendSync(sessionID, teamID, playerID string) {
	sync := h.reg.SyncStateFor(teamID, playerID)
	payload := cartridge.Payload{
		"team_id":       sync.TeamID,
		"team_name":     sync.TeamName,
		"player_id":     sync.PlayerID,
		"player_name":   sync.PlayerName,
		"join_code":     sync.JoinCode,
		"color":         sync.Color,
		"players":       sync.Players,
		"scores":        sync.Scores,
		"current_state": h.router.Current(),
		"state_data":    h.router.ClientStateData(),
	}
	h.ToSession(sessionID, "sync_state", payload)
	h.ToSession(sessionID, "score_update", h.scoresPayload())
}

func (h *Hub) requireAdmin(sessionID string) bool {
	if h.isAdmin(sessionID) {
		return true
	}
	h.log.Warn("admin event from unauthenticated session", zap.String("session_id", sessionID))
	h.ToSession(sessionID, "error", cartridge.Payload{
		"code":    "UNAUTHORIZED",
		"message": "Admin authentication required",
	})
	return false
}

func (h *Hub) isAdmin(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[sessionID]
	return ok && c.isAdmin
}

// teamSessions returns the connection ids currently bound to a team.
func (h *Hub) teamSessions(teamID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []string
	for sid := range h.clients {
		if sess, ok := h.reg.SessionFor(sid); ok && sess.TeamID == teamID {
			out = append(out, sid)
		}
	}
	return out
}

func (h *Hub) scoresPayload() cartridge.Payload {
	return cartridge.Payload{
		"scores": h.reg.Scores(),
		"teams":  h.reg.TeamsInfo(),
	}
}

func (h *Hub) broadcastScores() {
	h.Broadcast("score_update", h.scoresPayload())
}

// Broadcast sends one event to every connected client.
func (h *Hub) Broadcast(event string, payload cartridge.Payload) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.push(c, frame)
	}
}

// ToSession sends to one connection.
func (h *Hub) ToSession(sessionID, event string, payload cartridge.Payload) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[sessionID]; ok {
		h.push(c, frame)
	}
}

// ToTeam sends to every connection bound to a team.
func (h *Hub) ToTeam(teamID, event string, payload cartridge.Payload) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sid, c := range h.clients {
		if sess, ok := h.reg.SessionFor(sid); ok && sess.TeamID == teamID {
			h.push(c, frame)
		}
	}
}

// ToTeamOthers sends to a team excluding one connection.
func (h *Hub) ToTeamOthers(teamID, skipSessionID, event string, payload cartridge.Payload) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sid, c := range h.clients {
		if sid == skipSessionID {
			continue
		}
		if sess, ok := h.reg.SessionFor(sid); ok && sess.TeamID == teamID {
			h.push(c, frame)
		}
	}
}

// ToAdmin sends to every admin-authenticated connection.
func (h *Hub) ToAdmin(event string, payload cartridge.Payload) {
	frame := encode(event, payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.isAdmin {
			h.push(c, frame)
		}
	}
}

// push enqueues a frame, dropping it if the client's buffer is full. A
// stuck phone must not back-pressure the whole party.
func (h *Hub) push(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.log.Warn("send buffer full, frame dropped", zap.String("session_id", c.ID))
	}
}

func encode(event string, payload any) []byte {
	frame, err := json.Marshal(types.ServerMessage{Event: event, Data: payload})
	if err != nil {
		frame, _ = json.Marshal(types.ServerMessage{Event: "error", Data: map[string]string{
			"code":    "ENCODING_ERROR",
			"message": "Failed to encode event " + event,
		}})
	}
	return frame
}

// resultPayload keeps create/join results as flat payload maps so the
// wire shape matches every other event.
func resultPayload(r registry.JoinResult) cartridge.Payload {
	p := cartridge.Payload{
		"success": r.Success,
		"message": r.Message,
	}
	if r.Code != "" {
		p["code"] = r.Code
	}
	if !r.Success {
		return p
	}
	p["team_id"] = r.TeamID
	p["player_id"] = r.PlayerID
	p["team_name"] = r.TeamName
	p["player_name"] = r.PlayerName
	p["join_code"] = r.JoinCode
	p["color"] = r.Color
	p["players"] = r.Players
	return p
}

func subPayload(data cartridge.Payload, key string) cartridge.Payload {
	if m, ok := data[key].(map[string]any); ok {
		return cartridge.Payload(m)
	}
	return cartridge.Payload{}
}
