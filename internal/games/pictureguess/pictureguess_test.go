package pictureguess

import (
	"testing"

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
	g.OnEnter(cartridge.Payload{"picture_id": "pic-1", "image_url": "http://x/1.jpg"})

	ctxA := cartridge.Context{SessionID: "sess-a", TeamID: a.TeamID, PlayerID: a.PlayerID, PlayerName: "Ada"}
	ctxB := cartridge.Context{SessionID: "sess-b", TeamID: b.TeamID, PlayerID: b.PlayerID, PlayerName: "Grace"}
	return g, reg, ctxA, ctxB
}

func TestSubmitGuess(t *testing.T) {
	g, _, ctxA, ctxB := setup(t)

	resp := g.HandleEvent("submit_picture_guess", cartridge.Payload{
		"guess_text": "the fresh prince",
	}, ctxA)
	if resp.Err != nil {
		t.Fatalf("err: %+v", resp.Err)
	}
	received := resp.ToAdmin["picture_guess_received"]
	if received["guess_text"] != "the fresh prince" || received["team_name"] != "Alpha" {
		t.Fatalf("picture_guess_received = %v", received)
	}
	if resp.Broadcast["submission_status"]["submitted_count"] != 1 {
		t.Fatal("submission count wrong")
	}

	// Second team submitting bumps the count; resubmission does not.
	resp = g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "x"}, ctxB)
	if resp.Broadcast["submission_status"]["submitted_count"] != 2 {
		t.Fatal("second team not counted")
	}
	resp = g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "y"}, ctxA)
	if resp.Broadcast["submission_status"]["submitted_count"] != 2 {
		t.Fatal("resubmission double counted")
	}
}

func TestGradeAwardsPoints(t *testing.T) {
	g, reg, ctxA, _ := setup(t)
	g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "right"}, ctxA)

	resp := g.HandleEvent("grade_picture_guess", cartridge.Payload{
		"team_id": ctxA.TeamID,
		"correct": true,
		"points":  75,
	}, cartridge.Context{IsAdmin: true})

	if reg.Scores()[ctxA.TeamID] != 75 {
		t.Fatalf("score = %d", reg.Scores()[ctxA.TeamID])
	}
	result := resp.ToSpecificTeam[ctxA.TeamID]["picture_guess_result"]
	if result["correct"] != true || result["points_awarded"] != 75 {
		t.Fatalf("result = %v", result)
	}
	if _, ok := resp.Broadcast["score_update"]; !ok {
		t.Fatal("score_update missing")
	}
}

func TestGradeIncorrectAwardsNothing(t *testing.T) {
	g, reg, ctxA, _ := setup(t)

	resp := g.HandleEvent("grade_picture_guess", cartridge.Payload{
		"team_id": ctxA.TeamID,
		"correct": false,
		"points":  75,
	}, cartridge.Context{IsAdmin: true})

	if reg.Scores()[ctxA.TeamID] != 0 {
		t.Fatal("incorrect guess scored")
	}
	if _, ok := resp.Broadcast["score_update"]; ok {
		t.Fatal("no score_update expected")
	}
}

func TestRevealListsGuessesAndClears(t *testing.T) {
	g, _, ctxA, ctxB := setup(t)
	g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "a"}, ctxA)
	g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "b"}, ctxB)

	resp := g.HandleEvent("reveal_picture", cartridge.Payload{
		"correct_answer": "Will Smith",
	}, cartridge.Context{IsAdmin: true})

	revealed := resp.Broadcast["picture_revealed"]
	if revealed["correct_answer"] != "Will Smith" {
		t.Fatalf("picture_revealed = %v", revealed)
	}
	if guesses := revealed["team_guesses"].([]cartridge.Payload); len(guesses) != 2 {
		t.Fatalf("guesses = %d", len(guesses))
	}

	resp = g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "z"}, ctxA)
	if resp.Broadcast["submission_status"]["submitted_count"] != 1 {
		t.Fatal("reveal must clear stored guesses")
	}
}

func TestTypingSyncsTeamOnly(t *testing.T) {
	g, _, ctxA, _ := setup(t)

	resp := g.HandleEvent("picture_guess_typing", cartridge.Payload{"text": "the fre"}, ctxA)
	sync := resp.ToTeamOthers["picture_guess_sync"]
	if sync == nil || sync["text"] != "the fre" {
		t.Fatalf("picture_guess_sync = %v", sync)
	}
	if len(resp.Broadcast) != 0 {
		t.Fatal("typing must not broadcast")
	}

	// No team, no sync.
	resp = g.HandleEvent("picture_guess_typing", cartridge.Payload{"text": "x"}, cartridge.Context{})
	if !resp.Empty() {
		t.Fatal("teamless typing must be a no-op")
	}
}

func TestClientStateHidesAnswers(t *testing.T) {
	g, _, ctxA, _ := setup(t)
	g.HandleEvent("submit_picture_guess", cartridge.Payload{"guess_text": "secret"}, ctxA)

	client := g.ClientStateData()
	if _, ok := client["answers"]; ok {
		t.Fatal("answers leaked to clients")
	}
	if client["picture_id"] != "pic-1" {
		t.Fatalf("picture_id = %v", client["picture_id"])
	}
}
