// Package survival is the majority-alignment cartridge. Players vote
// individually on binary questions; a team scores when its own majority
// matches the game-wide plurality. A game-wide tie awards nothing.
package survival

import (
	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

// Points awarded to each team aligned with the majority.
const pointsForMajority = 100

type Game struct {
	cartridge.Base
	reg *registry.Registry

	roundID      any
	questionText string
	optionA      string
	optionB      string
	playerVotes  map[string]string // player id -> "A" | "B"
	revealed     bool
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "SURVIVAL", GameName: "Survival Mode"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"survival_vote": g.handleVote,
	}
	g.Admin = map[string]cartridge.HandlerFunc{
		"survival_reveal":      g.handleReveal,
		"survival_reset_round": g.handleResetRound,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	g.roundID = initData["round_id"]
	g.questionText = initData.String("question_text")
	g.optionA = initData.StringOr("option_a", "YES")
	g.optionB = initData.StringOr("option_b", "NO")
	g.playerVotes = map[string]string{}
	g.revealed = false
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	g.playerVotes = nil
	return cartridge.NewResponse()
}

func (g *Game) handleVote(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	playerID := ctx.PlayerID
	teamID := ctx.TeamID
	if teamID == "" {
		teamID = data.String("team_id")
	}
	vote := data.String("vote")

	if playerID == "" {
		return cartridge.ErrorResponse("NO_PLAYER", "Player required")
	}
	if teamID == "" {
		return cartridge.ErrorResponse("NO_TEAM", "Team required")
	}
	if vote != "A" && vote != "B" {
		return cartridge.ErrorResponse("INVALID_VOTE", "Vote must be A or B")
	}
	team, ok := g.reg.Team(teamID)
	if !ok {
		return cartridge.ErrorResponse("INVALID_TEAM", "Team not found")
	}

	g.playerVotes[playerID] = vote
	countA, countB := g.voteCounts()

	resp := cartridge.NewResponse()
	resp.AddToAdmin("survival_vote_received", cartridge.Payload{
		"team_id":             teamID,
		"team_name":           team.Name,
		"player_id":           playerID,
		"player_name":         ctx.PlayerName,
		"vote":                vote,
		"vote_counts":         cartridge.Payload{"A": countA, "B": countB},
		"total_players_voted": len(g.playerVotes),
	})
	resp.AddToSender("survival_vote_confirmed", cartridge.Payload{
		"vote": vote,
	})
	resp.AddBroadcast("survival_vote_update", cartridge.Payload{
		"vote_counts": cartridge.Payload{"A": countA, "B": countB},
		"total_votes": len(g.playerVotes),
	})
	return resp
}

func (g *Game) handleReveal(_ cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	if len(g.playerVotes) == 0 {
		return cartridge.ErrorResponse("NO_VOTES", "No votes to reveal")
	}

	countA, countB := g.voteCounts()

	gameMajority := ""
	switch {
	case countA > countB:
		gameMajority = "A"
	case countB > countA:
		gameMajority = "B"
	}

	var awarded, notAwarded []cartridge.Payload
	var awardedIDs, notAwardedIDs []string

	for teamID, info := range g.reg.TeamsInfo() {
		teamVotes := g.teamVotes(teamID)
		if len(teamVotes) == 0 {
			notAwarded = append(notAwarded, cartridge.Payload{
				"team_id":       teamID,
				"team_name":     info.Name,
				"team_majority": nil,
				"votes_a":       0,
				"votes_b":       0,
				"reason":        "no_votes",
			})
			notAwardedIDs = append(notAwardedIDs, teamID)
			continue
		}

		teamA, teamB := 0, 0
		for _, v := range teamVotes {
			if v == "A" {
				teamA++
			} else {
				teamB++
			}
		}
		teamMajority := ""
		switch {
		case teamA > teamB:
			teamMajority = "A"
		case teamB > teamA:
			teamMajority = "B"
		}

		result := cartridge.Payload{
			"team_id":       teamID,
			"team_name":     info.Name,
			"team_majority": teamMajority,
			"votes_a":       teamA,
			"votes_b":       teamB,
		}

		if gameMajority != "" && teamMajority == gameMajority {
			g.reg.AddPoints(teamID, pointsForMajority, "Survival majority alignment")
			result["points_awarded"] = pointsForMajority
			awarded = append(awarded, result)
			awardedIDs = append(awardedIDs, teamID)
		} else {
			result["points_awarded"] = 0
			switch {
			case gameMajority == "":
				result["reason"] = "game_tie"
			case teamMajority == "":
				result["reason"] = "team_tie"
			default:
				result["reason"] = "minority"
			}
			notAwarded = append(notAwarded, result)
			notAwardedIDs = append(notAwardedIDs, teamID)
		}
	}

	g.revealed = true

	resp := cartridge.NewResponse()
	resp.AddBroadcast("survival_reveal", cartridge.Payload{
		"game_majority":     gameMajority,
		"vote_counts":       cartridge.Payload{"A": countA, "B": countB},
		"teams_awarded":     awarded,
		"teams_not_awarded": notAwarded,
		"points_value":      pointsForMajority,
		"is_tie":            gameMajority == "",
	})
	resp.AddToAdmin("survival_round_complete", cartridge.Payload{
		"game_majority":     gameMajority,
		"vote_counts":       cartridge.Payload{"A": countA, "B": countB},
		"teams_awarded":     awardedIDs,
		"teams_not_awarded": notAwardedIDs,
	})
	return resp
}

func (g *Game) handleResetRound(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	g.playerVotes = map[string]string{}
	g.revealed = false

	if v := data.String("question_text"); v != "" {
		g.questionText = v
	}
	if v := data.String("option_a"); v != "" {
		g.optionA = v
	}
	if v := data.String("option_b"); v != "" {
		g.optionB = v
	}
	if v, ok := data["round_id"]; ok && v != nil {
		g.roundID = v
	}

	return cartridge.NewResponse().AddBroadcast("survival_round_reset", cartridge.Payload{
		"round_id":      g.roundID,
		"question_text": g.questionText,
		"option_a":      g.optionA,
		"option_b":      g.optionB,
	})
}

func (g *Game) voteCounts() (int, int) {
	a, b := 0, 0
	for _, v := range g.playerVotes {
		if v == "A" {
			a++
		} else {
			b++
		}
	}
	return a, b
}

// teamVotes filters the vote map down to players on one team.
func (g *Game) teamVotes(teamID string) map[string]string {
	team, ok := g.reg.Team(teamID)
	if !ok {
		return nil
	}
	out := map[string]string{}
	for pid, vote := range g.playerVotes {
		if _, onTeam := team.Players[pid]; onTeam {
			out[pid] = vote
		}
	}
	return out
}

func (g *Game) StateData() cartridge.Payload {
	votes := cartridge.Payload{}
	for pid, v := range g.playerVotes {
		votes[pid] = v
	}
	return cartridge.Payload{
		"round_id":      g.roundID,
		"question_text": g.questionText,
		"option_a":      g.optionA,
		"option_b":      g.optionB,
		"player_votes":  votes,
		"revealed":      g.revealed,
	}
}

// ClientStateData hides who voted what; only aggregate counts leave the
// server before the reveal.
func (g *Game) ClientStateData() cartridge.Payload {
	return cartridge.Payload{
		"round_id":      g.roundID,
		"question_text": g.questionText,
		"option_a":      g.optionA,
		"option_b":      g.optionB,
		"total_votes":   len(g.playerVotes),
	}
}
