package hub

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
	"github.com/y2kparty/console-backend/internal/types"
)

// stubRouter records transitions and dispatches.
type stubRouter struct {
	state      string
	setStates  []string
	dispatched []string
	lastAdmin  bool
}

func (s *stubRouter) Current() string { return s.state }

func (s *stubRouter) ClientStateData() cartridge.Payload {
	return cartridge.Payload{"phase": s.state}
}

func (s *stubRouter) SetState(id string, _ cartridge.Payload) error {
	s.setStates = append(s.setStates, id)
	s.state = id
	return nil
}
func (s *stubRouter) Dispatch(event string, _ cartridge.Payload, _ string, isAdmin bool) {
	s.dispatched = append(s.dispatched, event)
	s.lastAdmin = isAdmin
}

func newTestHub(t *testing.T) (*Hub, *stubRouter, *registry.Registry) {
	t.Helper()
	reg := registry.New(t.TempDir(), zap.NewNop())
	h := New(reg, "hunter2", zap.NewNop())
	rt := &stubRouter{state: "LOBBY"}
	h.AttachRouter(rt)
	return h, rt, reg
}

// drain decodes every frame queued for a client.
func drain(t *testing.T, c *Client) []types.ServerMessage {
	t.Helper()
	var out []types.ServerMessage
	for {
		select {
		case frame := <-c.send:
			var msg types.ServerMessage
			if err := json.Unmarshal(frame, &msg); err != nil {
				t.Fatalf("bad frame %q: %v", frame, err)
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func hasEvent(msgs []types.ServerMessage, event string) bool {
	for _, m := range msgs {
		if m.Event == event {
			return true
		}
	}
	return false
}

func send(h *Hub, sid, event string, data map[string]any) {
	h.HandleMessage(sid, types.ClientMessage{Event: event, Data: data})
}

func TestCreateAndJoinTeamFlow(t *testing.T) {
	h, _, reg := newTestHub(t)
	c1 := h.Register("sess-1")
	c2 := h.Register("sess-2")

	send(h, "sess-1", "create_team", map[string]any{"team_name": "Alpha", "player_name": "Ada"})

	msgs := drain(t, c1)
	if !hasEvent(msgs, "creation_result") {
		t.Fatal("creator got no creation_result")
	}
	if !hasEvent(msgs, "score_update") {
		t.Fatal("creation must broadcast scores")
	}
	if !hasEvent(drain(t, c2), "score_update") {
		t.Fatal("other clients must see the score broadcast")
	}

	sess, ok := reg.SessionFor("sess-1")
	if !ok {
		t.Fatal("session not bound")
	}
	team, _ := reg.Team(sess.TeamID)

	send(h, "sess-2", "join_team", map[string]any{"join_code": team.JoinCode, "player_name": "Grace"})
	msgs = drain(t, c2)
	if !hasEvent(msgs, "join_result") {
		t.Fatal("joiner got no join_result")
	}
	if !hasEvent(msgs, "player_joined") {
		t.Fatal("team room must hear player_joined")
	}
	if !hasEvent(drain(t, c1), "player_joined") {
		t.Fatal("existing teammate must hear player_joined")
	}
}

func TestRegisterReplaysSyncForKnownSession(t *testing.T) {
	h, _, reg := newTestHub(t)
	created := reg.CreateTeam("Alpha", "Ada", "sess-1")
	if !created.Success {
		t.Fatal("setup failed")
	}

	c := h.Register("sess-1")
	msgs := drain(t, c)
	if !hasEvent(msgs, "sync_state") {
		t.Fatal("known session must receive sync_state on connect")
	}
	if !hasEvent(msgs, "score_update") {
		t.Fatal("known session must receive score_update on connect")
	}

	// A fresh session gets nothing until it registers a team.
	c2 := h.Register("sess-2")
	if msgs := drain(t, c2); len(msgs) != 0 {
		t.Fatalf("unknown session received %v", msgs)
	}
}

func TestAdminAuth(t *testing.T) {
	h, rt, _ := newTestHub(t)
	c := h.Register("sess-1")

	send(h, "sess-1", "admin_auth", map[string]any{"password": "wrong"})
	msgs := drain(t, c)
	if !hasEvent(msgs, "admin_auth_result") {
		t.Fatal("no auth result")
	}
	if h.isAdmin("sess-1") {
		t.Fatal("wrong password must not grant admin")
	}

	send(h, "sess-1", "admin_auth", map[string]any{"password": "hunter2"})
	msgs = drain(t, c)
	if !hasEvent(msgs, "state_change") || !hasEvent(msgs, "score_update") {
		t.Fatalf("granted admin should get state and scores, got %v", msgs)
	}
	if !h.isAdmin("sess-1") {
		t.Fatal("correct password must grant admin")
	}

	send(h, "sess-1", "set_state", map[string]any{"new_state": "BUZZER"})
	if len(rt.setStates) != 1 || rt.setStates[0] != "BUZZER" {
		t.Fatalf("setStates = %v", rt.setStates)
	}
}

func TestAdminEventsRejectedWithoutAuth(t *testing.T) {
	h, rt, reg := newTestHub(t)
	c := h.Register("sess-1")
	created := reg.CreateTeam("Alpha", "Ada", "sess-2")

	for _, event := range []string{"set_state", "add_points", "reset_game", "kick_team", "toggle_qr_code"} {
		send(h, "sess-1", event, map[string]any{
			"new_state": "BUZZER",
			"team_id":   created.TeamID,
			"points":    100,
			"confirm":   true,
		})
	}

	msgs := drain(t, c)
	errs := 0
	for _, m := range msgs {
		if m.Event == "error" {
			errs++
		}
	}
	if errs != 5 {
		t.Fatalf("unauthorized errors = %d, want 5", errs)
	}
	if len(rt.setStates) != 0 {
		t.Fatal("unauthorized set_state reached the router")
	}
	if reg.Scores()[created.TeamID] != 0 {
		t.Fatal("unauthorized add_points changed a score")
	}
	if _, ok := reg.Team(created.TeamID); !ok {
		t.Fatal("unauthorized kick removed a team")
	}
}

func TestResetGameRequiresConfirm(t *testing.T) {
	h, rt, reg := newTestHub(t)
	h.Register("sess-1")
	send(h, "sess-1", "admin_auth", map[string]any{"password": "hunter2"})
	reg.CreateTeam("Alpha", "Ada", "sess-2")

	send(h, "sess-1", "reset_game", map[string]any{})
	if len(reg.TeamIDs()) != 1 || len(rt.setStates) != 0 {
		t.Fatal("reset without confirm must be ignored")
	}

	send(h, "sess-1", "reset_game", map[string]any{"confirm": true})
	if len(reg.TeamIDs()) != 0 {
		t.Fatal("confirmed reset must clear teams")
	}
	if len(rt.setStates) != 1 || rt.setStates[0] != registry.DefaultState {
		t.Fatalf("reset must transition to the lobby, got %v", rt.setStates)
	}
}

func TestKickTeamNotifiesMembers(t *testing.T) {
	h, _, reg := newTestHub(t)
	h.Register("sess-admin")
	member := h.Register("sess-1")

	send(h, "sess-admin", "admin_auth", map[string]any{"password": "hunter2"})
	send(h, "sess-1", "create_team", map[string]any{"team_name": "Alpha", "player_name": "Ada"})
	drain(t, member)

	sess, _ := reg.SessionFor("sess-1")
	send(h, "sess-admin", "kick_team", map[string]any{"team_id": sess.TeamID})

	msgs := drain(t, member)
	if !hasEvent(msgs, "team_kicked") {
		t.Fatalf("kicked member not notified, got %v", msgs)
	}
	if _, ok := reg.Team(sess.TeamID); ok {
		t.Fatal("team survived the kick")
	}
}

func TestTeamTargeting(t *testing.T) {
	h, _, reg := newTestHub(t)
	a1 := h.Register("sess-a1")
	a2 := h.Register("sess-a2")
	b1 := h.Register("sess-b1")

	created := reg.CreateTeam("Alpha", "Ada", "sess-a1")
	team, _ := reg.Team(created.TeamID)
	reg.JoinTeam(team.JoinCode, "Grace", "sess-a2")
	reg.CreateTeam("Beta", "Bob", "sess-b1")
	for _, c := range []*Client{a1, a2, b1} {
		drain(t, c)
	}

	h.ToTeam(created.TeamID, "ping", cartridge.Payload{})
	if !hasEvent(drain(t, a1), "ping") || !hasEvent(drain(t, a2), "ping") {
		t.Fatal("team members missed a team event")
	}
	if hasEvent(drain(t, b1), "ping") {
		t.Fatal("other team received a team event")
	}

	h.ToTeamOthers(created.TeamID, "sess-a1", "typing", cartridge.Payload{})
	if hasEvent(drain(t, a1), "typing") {
		t.Fatal("sender must be excluded from ToTeamOthers")
	}
	if !hasEvent(drain(t, a2), "typing") {
		t.Fatal("teammate missed a ToTeamOthers event")
	}
}

func TestAdminTargeting(t *testing.T) {
	h, _, _ := newTestHub(t)
	admin := h.Register("sess-admin")
	player := h.Register("sess-1")

	send(h, "sess-admin", "admin_auth", map[string]any{"password": "hunter2"})
	drain(t, admin)

	h.ToAdmin("secret", cartridge.Payload{})
	if !hasEvent(drain(t, admin), "secret") {
		t.Fatal("admin missed an admin event")
	}
	if hasEvent(drain(t, player), "secret") {
		t.Fatal("player received an admin event")
	}
}

func TestUnknownEventGoesToRouter(t *testing.T) {
	h, rt, _ := newTestHub(t)
	h.Register("sess-1")

	send(h, "sess-1", "press_buzzer", map[string]any{})
	if len(rt.dispatched) != 1 || rt.dispatched[0] != "press_buzzer" {
		t.Fatalf("dispatched = %v", rt.dispatched)
	}
	if rt.lastAdmin {
		t.Fatal("non-admin dispatch flagged as admin")
	}

	send(h, "sess-1", "admin_auth", map[string]any{"password": "hunter2"})
	send(h, "sess-1", "judge_buzzer", map[string]any{})
	if !rt.lastAdmin {
		t.Fatal("admin dispatch not flagged")
	}
}

func TestSlowClientFramesDropped(t *testing.T) {
	h, _, _ := newTestHub(t)
	c := h.Register("sess-1")

	for i := 0; i < sendBuffer+10; i++ {
		h.Broadcast("tick", cartridge.Payload{})
	}
	if got := len(drain(t, c)); got != sendBuffer {
		t.Fatalf("buffered frames = %d, want %d", got, sendBuffer)
	}
}
