// Package timeline is the ordering cartridge: teams drag shuffled items
// into chronological order and race to submit. Finish position pays a
// sliding scale; a team that already solved it keeps its original rank.
package timeline

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

// pointsTable pays by finish position; later finishers get the last tier.
var pointsTable = []int{100, 75, 50, 25}

// parenthetical matches a trailing "(1985)"-style hint on an item label.
var parenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

type submission struct {
	Order      []string
	PlayerID   string
	PlayerName string
	Timestamp  time.Time
}

type Game struct {
	cartridge.Base
	reg *registry.Registry

	puzzleID     any
	correctOrder []string
	items        []string
	winners      []string
	submissions  map[string]submission
	statuses     map[string]string // team id -> thinking | failed | winner
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "TIMELINE", GameName: "Timeline"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"submit_timeline": g.handleSubmit,
		"timeline_update": g.handleUpdate,
	}
	g.Admin = map[string]cartridge.HandlerFunc{
		"complete_timeline": g.handleComplete,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	g.puzzleID = initData["puzzle_id"]
	g.correctOrder = initData.Strings("correct_order")
	g.items = initData.Strings("items")
	g.winners = nil
	g.submissions = map[string]submission{}
	g.statuses = map[string]string{}
	for _, teamID := range g.reg.TeamIDs() {
		g.statuses[teamID] = "thinking"
	}
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	g.submissions = nil
	return cartridge.NewResponse()
}

func (g *Game) handleSubmit(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	teamID := ctx.TeamID
	if teamID == "" {
		teamID = data.String("team_id")
	}
	if teamID == "" {
		return cartridge.ErrorResponse("NO_TEAM", "Team required")
	}
	team, ok := g.reg.Team(teamID)
	if !ok {
		return cartridge.ErrorResponse("INVALID_TEAM", "Team not found")
	}

	resp := cartridge.NewResponse()

	// A winning team re-submitting keeps its rank and earns nothing new.
	for i, winnerID := range g.winners {
		if winnerID == teamID {
			resp.AddToSpecificTeam(teamID, "timeline_result", cartridge.Payload{
				"correct":         true,
				"points_awarded":  0,
				"finish_position": i + 1,
				"message":         "Already submitted correct answer",
				"player_id":       ctx.PlayerID,
				"player_name":     ctx.PlayerName,
			})
			return resp
		}
	}

	order := data.Strings("order")
	g.submissions[teamID] = submission{
		Order:      order,
		PlayerID:   ctx.PlayerID,
		PlayerName: ctx.PlayerName,
		Timestamp:  time.Now(),
	}

	if g.isCorrect(order) {
		g.winners = append(g.winners, teamID)
		finishPosition := len(g.winners)

		tier := finishPosition - 1
		if tier >= len(pointsTable) {
			tier = len(pointsTable) - 1
		}
		points := pointsTable[tier]

		g.reg.AddPoints(teamID, points, "Timeline correct")
		g.statuses[teamID] = "winner"

		resp.AddToSpecificTeam(teamID, "timeline_result", cartridge.Payload{
			"correct":         true,
			"points_awarded":  points,
			"finish_position": finishPosition,
			"message":         "TIMELINE RESTORED",
			"player_id":       ctx.PlayerID,
			"player_name":     ctx.PlayerName,
		})
		resp.AddBroadcast("score_update", cartridge.Payload{
			"scores": g.reg.Scores(),
			"teams":  g.reg.TeamsInfo(),
		})
	} else {
		g.statuses[teamID] = "failed"
		resp.AddToSpecificTeam(teamID, "timeline_result", cartridge.Payload{
			"correct":        false,
			"attempt_number": 1,
			"message":        "Incorrect!",
			"player_id":      ctx.PlayerID,
			"player_name":    ctx.PlayerName,
		})
	}

	resp.AddToAdmin("timeline_submission", cartridge.Payload{
		"team_id":     teamID,
		"team_name":   team.Name,
		"player_id":   ctx.PlayerID,
		"player_name": ctx.PlayerName,
		"order":       order,
		"status":      g.statuses[teamID],
	})
	resp.AddBroadcast("timeline_status", cartridge.Payload{
		"team_statuses": g.teamStatuses(),
	})
	return resp
}

func (g *Game) handleUpdate(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	resp := cartridge.NewResponse()
	if ctx.TeamID != "" {
		resp.AddToTeamOthers("timeline_sync", cartridge.Payload{
			"order":            data.Strings("order"),
			"from_player_id":   ctx.PlayerID,
			"from_player_name": ctx.PlayerName,
		})
	}
	return resp
}

func (g *Game) handleComplete(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	correctOrder := g.correctOrder
	if v := data.Strings("correct_order"); len(v) > 0 {
		correctOrder = v
	}

	var winnerTeamID any
	if len(g.winners) > 0 {
		winnerTeamID = g.winners[0]
	}

	var subs []cartridge.Payload
	for teamID, sub := range g.submissions {
		team, ok := g.reg.Team(teamID)
		if !ok {
			continue
		}
		status := g.statuses[teamID]
		if status == "" {
			status = "thinking"
		}
		subs = append(subs, cartridge.Payload{
			"team_id":     teamID,
			"team_name":   team.Name,
			"order":       sub.Order,
			"player_id":   sub.PlayerID,
			"player_name": sub.PlayerName,
			"timestamp":   sub.Timestamp.Unix(),
			"status":      status,
		})
	}
	sort.Slice(subs, func(i, j int) bool {
		return subs[i]["timestamp"].(int64) > subs[j]["timestamp"].(int64)
	})

	return cartridge.NewResponse().AddBroadcast("timeline_complete", cartridge.Payload{
		"winner_team_id":   winnerTeamID,
		"correct_order":    correctOrder,
		"correct_labels":   data.Strings("correct_labels"),
		"shuffled_items":   g.items,
		"team_submissions": subs,
	})
}

func (g *Game) isCorrect(order []string) bool {
	if len(order) != len(g.correctOrder) {
		return false
	}
	for i := range order {
		if order[i] != g.correctOrder[i] {
			return false
		}
	}
	return len(order) > 0
}

func (g *Game) teamStatuses() cartridge.Payload {
	out := cartridge.Payload{}
	for teamID, status := range g.statuses {
		out[teamID] = status
	}
	return out
}

func (g *Game) StateData() cartridge.Payload {
	subs := cartridge.Payload{}
	for teamID, sub := range g.submissions {
		subs[teamID] = cartridge.Payload{
			"order":       sub.Order,
			"player_id":   sub.PlayerID,
			"player_name": sub.PlayerName,
			"timestamp":   sub.Timestamp.Unix(),
		}
	}
	return cartridge.Payload{
		"puzzle_id":     g.puzzleID,
		"correct_order": g.correctOrder,
		"items":         g.items,
		"winners":       append([]string{}, g.winners...),
		"submissions":   subs,
		"statuses":      g.teamStatuses(),
	}
}

// ClientStateData strips the answer key and per-team bookkeeping, and
// scrubs trailing date hints off the item labels.
func (g *Game) ClientStateData() cartridge.Payload {
	items := make([]string, len(g.items))
	for i, item := range g.items {
		items[i] = strings.TrimSpace(parenthetical.ReplaceAllString(item, ""))
	}
	return cartridge.Payload{
		"puzzle_id": g.puzzleID,
		"items":     items,
		"statuses":  g.teamStatuses(),
	}
}
