// Package pixelperfect is the visual buzzer cartridge: an image un-blurs
// over 30 seconds while teams race to buzz in with a guess.
package pixelperfect

import (
	"fmt"
	"time"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

const freezePenalty = 10 * time.Second

type lock struct {
	TeamID     string
	TeamName   string
	PlayerID   string
	PlayerName string
}

type Game struct {
	cartridge.Base
	reg *registry.Registry

	roundID       any
	imageURL      string
	correctAnswer string
	lockedBy      *lock
	frozenUntil   map[string]time.Time
	roundStarted  bool
	roundStart    time.Time
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "PIXELPERFECT", GameName: "Pixel Perfect"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"press_pixelperfect_buzzer": g.handlePress,
	}
	g.Admin = map[string]cartridge.HandlerFunc{
		"judge_pixelperfect":       g.handleJudge,
		"start_pixelperfect_round": g.handleStartRound,
		"reveal_pixelperfect":      g.handleReveal,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	g.roundID = initData["round_id"]
	g.imageURL = initData.String("image_url")
	g.correctAnswer = initData.String("correct_answer")
	g.lockedBy = nil
	g.frozenUntil = map[string]time.Time{}
	g.roundStarted = false
	g.roundStart = time.Time{}
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	g.lockedBy = nil
	g.frozenUntil = nil
	return cartridge.NewResponse()
}

func (g *Game) handleStartRound(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	if v, ok := data["round_id"]; ok && v != nil {
		g.roundID = v
	} else {
		g.roundID = time.Now().Unix()
	}
	g.imageURL = data.String("image_url")
	g.correctAnswer = data.String("correct_answer")
	g.lockedBy = nil
	g.frozenUntil = map[string]time.Time{}
	g.roundStarted = true
	g.roundStart = time.Now()

	return cartridge.NewResponse().AddBroadcast("pixelperfect_round_start", cartridge.Payload{
		"round_id":  g.roundID,
		"image_url": g.imageURL,
	})
}

func (g *Game) handlePress(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	resp := cartridge.NewResponse()

	teamID := ctx.TeamID
	if teamID == "" {
		teamID = data.String("team_id")
	}
	if teamID == "" || g.lockedBy != nil || g.isFrozen(teamID) {
		return resp
	}
	team, ok := g.reg.Team(teamID)
	if !ok {
		return resp
	}

	g.lockedBy = &lock{
		TeamID:     teamID,
		TeamName:   team.Name,
		PlayerID:   ctx.PlayerID,
		PlayerName: ctx.PlayerName,
	}

	resp.AddBroadcast("pixelperfect_locked", cartridge.Payload{
		"locked_by_team_id":     teamID,
		"locked_by_team_name":   team.Name,
		"locked_by_player_id":   ctx.PlayerID,
		"locked_by_player_name": ctx.PlayerName,
	})
	return resp
}

func (g *Game) handleJudge(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	teamID := data.String("team_id")
	correct := data.Bool("correct", false)
	points := data.Int("points", 0)

	resp := cartridge.NewResponse()
	previous := g.lockedBy
	g.lockedBy = nil

	if correct && points != 0 {
		g.reg.AddPoints(teamID, points, "Pixel Perfect correct answer")
		resp.AddBroadcast("score_update", cartridge.Payload{
			"scores": g.reg.Scores(),
			"teams":  g.reg.TeamsInfo(),
		})
	}

	freezeSeconds := 0
	if !correct && teamID != "" {
		freezeSeconds = int(freezePenalty.Seconds())
		g.frozenUntil[teamID] = time.Now().Add(freezePenalty)
		resp.AddToSpecificTeam(teamID, "pixelperfect_lockout", cartridge.Payload{
			"freeze_seconds": freezeSeconds,
			"message":        fmt.Sprintf("Frozen for %d seconds", freezeSeconds),
		})
	}

	reset := cartridge.Payload{
		"result":         "incorrect",
		"freeze_seconds": freezeSeconds,
	}
	if correct {
		reset["result"] = "correct"
	}
	if previous != nil {
		reset["previous_team_id"] = previous.TeamID
		reset["previous_team_name"] = previous.TeamName
		reset["previous_player_id"] = previous.PlayerID
		reset["previous_player_name"] = previous.PlayerName
	}
	resp.AddBroadcast("pixelperfect_reset", reset)
	return resp
}

func (g *Game) handleReveal(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	answer := data.StringOr("correct_answer", g.correctAnswer)
	return cartridge.NewResponse().AddBroadcast("pixelperfect_reveal", cartridge.Payload{
		"correct_answer": answer,
	})
}

func (g *Game) isFrozen(teamID string) bool {
	expiry, ok := g.frozenUntil[teamID]
	if !ok {
		return false
	}
	if !time.Now().Before(expiry) {
		delete(g.frozenUntil, teamID)
		return false
	}
	return true
}

func (g *Game) StateData() cartridge.Payload {
	state := cartridge.Payload{
		"round_id":       g.roundID,
		"image_url":      g.imageURL,
		"correct_answer": g.correctAnswer,
		"round_started":  g.roundStarted,
	}
	if g.lockedBy != nil {
		state["locked_by"] = cartridge.Payload{
			"team_id":     g.lockedBy.TeamID,
			"team_name":   g.lockedBy.TeamName,
			"player_id":   g.lockedBy.PlayerID,
			"player_name": g.lockedBy.PlayerName,
		}
	}
	return state
}

// ClientStateData must never leak the answer before the reveal.
func (g *Game) ClientStateData() cartridge.Payload {
	return cartridge.Payload{
		"round_id":  g.roundID,
		"image_url": g.imageURL,
	}
}
