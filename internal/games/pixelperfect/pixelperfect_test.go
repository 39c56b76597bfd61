package pixelperfect

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

func setup(t *testing.T) (*Game, *registry.Registry, cartridge.Context, cartridge.Context) {
	t.Helper()
	reg := registry.New(t.TempDir(), zap.NewNop())
	a := reg.CreateTeam("Alpha", "Ada", "sess-a")
	b := reg.CreateTeam("Beta", "Grace", "sess-b")

	g := New(reg)
	g.OnEnter(cartridge.Payload{})

	ctxA := cartridge.Context{SessionID: "sess-a", TeamID: a.TeamID, PlayerID: a.PlayerID, PlayerName: "Ada"}
	ctxB := cartridge.Context{SessionID: "sess-b", TeamID: b.TeamID, PlayerID: b.PlayerID, PlayerName: "Grace"}
	return g, reg, ctxA, ctxB
}

func press(g *Game, ctx cartridge.Context) *cartridge.Response {
	return g.HandleEvent("press_pixelperfect_buzzer", cartridge.Payload{}, ctx)
}

func TestRoundStartResetsEverything(t *testing.T) {
	g, _, ctxA, _ := setup(t)
	press(g, ctxA)

	resp := g.HandleEvent("start_pixelperfect_round", cartridge.Payload{
		"round_id":       "r2",
		"image_url":      "http://x/2.jpg",
		"correct_answer": "Zelda",
	}, cartridge.Context{IsAdmin: true})

	start := resp.Broadcast["pixelperfect_round_start"]
	if start["round_id"] != "r2" || start["image_url"] != "http://x/2.jpg" {
		t.Fatalf("round_start = %v", start)
	}
	if _, ok := start["correct_answer"]; ok {
		t.Fatal("answer leaked in round start")
	}
	if resp := press(g, ctxA); resp.Empty() {
		t.Fatal("lock must clear on a new round")
	}
}

func TestFirstPressLocksOut(t *testing.T) {
	g, _, ctxA, ctxB := setup(t)
	g.HandleEvent("start_pixelperfect_round", cartridge.Payload{}, cartridge.Context{IsAdmin: true})

	resp := press(g, ctxA)
	if resp.Broadcast["pixelperfect_locked"]["locked_by_team_id"] != ctxA.TeamID {
		t.Fatalf("locked = %v", resp.Broadcast["pixelperfect_locked"])
	}
	if !press(g, ctxB).Empty() {
		t.Fatal("second press must be silent")
	}
}

func TestJudgeIncorrectFreezes(t *testing.T) {
	g, reg, ctxA, ctxB := setup(t)
	g.HandleEvent("start_pixelperfect_round", cartridge.Payload{}, cartridge.Context{IsAdmin: true})
	press(g, ctxA)

	resp := g.HandleEvent("judge_pixelperfect", cartridge.Payload{
		"team_id": ctxA.TeamID,
		"correct": false,
	}, cartridge.Context{IsAdmin: true})

	lockout := resp.ToSpecificTeam[ctxA.TeamID]["pixelperfect_lockout"]
	if lockout["freeze_seconds"] != int(freezePenalty.Seconds()) {
		t.Fatalf("lockout = %v", lockout)
	}
	if !press(g, ctxA).Empty() {
		t.Fatal("frozen team pressed")
	}
	if press(g, ctxB).Empty() {
		t.Fatal("other team should press freely")
	}
	if reg.Scores()[ctxA.TeamID] != 0 {
		t.Fatal("incorrect scored")
	}

	g.frozenUntil[ctxA.TeamID] = time.Now().Add(-time.Second)
	g.lockedBy = nil
	if press(g, ctxA).Empty() {
		t.Fatal("expired freeze must not block")
	}
}

func TestJudgeCorrectScores(t *testing.T) {
	g, reg, ctxA, _ := setup(t)
	g.HandleEvent("start_pixelperfect_round", cartridge.Payload{}, cartridge.Context{IsAdmin: true})
	press(g, ctxA)

	resp := g.HandleEvent("judge_pixelperfect", cartridge.Payload{
		"team_id": ctxA.TeamID,
		"correct": true,
		"points":  50,
	}, cartridge.Context{IsAdmin: true})

	if reg.Scores()[ctxA.TeamID] != 50 {
		t.Fatalf("score = %d", reg.Scores()[ctxA.TeamID])
	}
	reset := resp.Broadcast["pixelperfect_reset"]
	if reset["result"] != "correct" || reset["previous_team_id"] != ctxA.TeamID {
		t.Fatalf("reset = %v", reset)
	}
}

func TestRevealUsesStoredAnswer(t *testing.T) {
	g, _, _, _ := setup(t)
	g.HandleEvent("start_pixelperfect_round", cartridge.Payload{
		"correct_answer": "Zelda",
	}, cartridge.Context{IsAdmin: true})

	resp := g.HandleEvent("reveal_pixelperfect", cartridge.Payload{}, cartridge.Context{IsAdmin: true})
	if resp.Broadcast["pixelperfect_reveal"]["correct_answer"] != "Zelda" {
		t.Fatalf("reveal = %v", resp.Broadcast["pixelperfect_reveal"])
	}
}

func TestClientStateHidesAnswer(t *testing.T) {
	g, _, _, _ := setup(t)
	g.HandleEvent("start_pixelperfect_round", cartridge.Payload{
		"correct_answer": "Zelda",
	}, cartridge.Context{IsAdmin: true})

	if _, ok := g.ClientStateData()["correct_answer"]; ok {
		t.Fatal("answer leaked to clients")
	}
}
