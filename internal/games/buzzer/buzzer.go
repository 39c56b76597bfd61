// Package buzzer is the audio-round cartridge: first buzz locks everyone
// else out until the admin judges the answer. Wrong answers freeze the
// team's buzzer for a short penalty window.
package buzzer

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

	roundID     any
	audioHint   string
	lockedBy    *lock
	frozenUntil map[string]time.Time // team id -> penalty expiry
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "BUZZER", GameName: "Buzzer"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"press_buzzer": g.handlePress,
	}
	g.Admin = map[string]cartridge.HandlerFunc{
		"judge_buzzer": g.handleJudge,
		"play_audio":   g.handlePlayAudio,
		"stop_audio":   g.handleStopAudio,
		"reveal_audio": g.handleRevealAudio,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	g.roundID = initData["round_id"]
	g.audioHint = initData.String("audio_hint")
	g.lockedBy = nil
	g.frozenUntil = map[string]time.Time{}
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	g.lockedBy = nil
	g.frozenUntil = nil
	return cartridge.NewResponse()
}

func (g *Game) handlePress(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	resp := cartridge.NewResponse()

	teamID := ctx.TeamID
	if teamID == "" {
		teamID = data.String("team_id")
	}
	if teamID == "" {
		return resp
	}
	// Late presses while locked or frozen are no-ops, not errors: every
	// phone mashes the button at once.
	if g.lockedBy != nil {
		return resp
	}
	if g.isFrozen(teamID) {
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

	resp.AddBroadcast("buzzer_locked", cartridge.Payload{
		"locked_by_team_id":     teamID,
		"locked_by_team_name":   team.Name,
		"locked_by_player_id":   ctx.PlayerID,
		"locked_by_player_name": ctx.PlayerName,
	})
	resp.AddBroadcast("pause_audio", cartridge.Payload{})
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
		g.reg.AddPoints(teamID, points, "Buzzer correct answer")
		resp.AddBroadcast("score_update", cartridge.Payload{
			"scores": g.reg.Scores(),
			"teams":  g.reg.TeamsInfo(),
		})
	}

	freezeSeconds := 0
	if !correct && teamID != "" {
		freezeSeconds = int(freezePenalty.Seconds())
		g.frozenUntil[teamID] = time.Now().Add(freezePenalty)
		resp.AddToSpecificTeam(teamID, "buzzer_lockout", cartridge.Payload{
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
	resp.AddBroadcast("buzzer_reset", reset)

	if !correct {
		resp.AddBroadcast("resume_audio", cartridge.Payload{})
	}
	return resp
}

func (g *Game) handlePlayAudio(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	g.lockedBy = nil

	resp := cartridge.NewResponse()
	resp.AddBroadcast("play_audio", cartridge.Payload{
		"audio_url":   data.String("audio_url"),
		"spotify_uri": data.String("spotify_uri"),
		"start_ms":    data.Int("start_ms", 0),
		"duration_ms": data.Int("duration_ms", 30000),
	})
	resp.AddBroadcast("buzzer_reset", cartridge.Payload{
		"result": "new_audio",
	})
	return resp
}

func (g *Game) handleStopAudio(_ cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	return cartridge.NewResponse().AddBroadcast("stop_audio", cartridge.Payload{})
}

func (g *Game) handleRevealAudio(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	return cartridge.NewResponse().AddBroadcast("reveal_audio", cartridge.Payload{
		"track_title": data.String("track_title"),
		"artist":      data.String("artist"),
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
		"round_id":   g.roundID,
		"audio_hint": g.audioHint,
	}
	if g.lockedBy != nil {
		state["locked_by"] = cartridge.Payload{
			"team_id":     g.lockedBy.TeamID,
			"team_name":   g.lockedBy.TeamName,
			"player_id":   g.lockedBy.PlayerID,
			"player_name": g.lockedBy.PlayerName,
		}
	}
	frozen := cartridge.Payload{}
	for teamID, expiry := range g.frozenUntil {
		frozen[teamID] = expiry.Unix()
	}
	state["frozen_teams"] = frozen
	return state
}

// ClientStateData drops the lock and penalty bookkeeping; the track itself
// is the secret here and never lives in state at all.
func (g *Game) ClientStateData() cartridge.Payload {
	return cartridge.Payload{
		"round_id":   g.roundID,
		"audio_hint": g.audioHint,
	}
}
