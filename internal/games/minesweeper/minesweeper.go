// Package minesweeper is the elimination-round cartridge: the admin toggles
// teams out of the game as they hit mines on the shared board.
package minesweeper

import (
	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

type Game struct {
	cartridge.Base
	reg   *registry.Registry
	state cartridge.Payload
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "MINESWEEPER", GameName: "Minesweeper"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"toggle_elimination": g.handleToggleElimination,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	if initData == nil {
		initData = cartridge.Payload{}
	}
	g.state = initData
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	return cartridge.NewResponse()
}

func (g *Game) handleToggleElimination(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	teamID := data.String("team_id")
	eliminated := data.Bool("eliminated", true)

	resp := cartridge.NewResponse()

	team, ok := g.reg.Team(teamID)
	if !ok {
		return cartridge.ErrorResponse("INVALID_TEAM", "Team not found")
	}

	if g.reg.ToggleElimination(teamID, eliminated) {
		resp.AddBroadcast("elimination_update", cartridge.Payload{
			"team_id":         teamID,
			"team_name":       team.Name,
			"eliminated":      eliminated,
			"remaining_teams": g.reg.RemainingTeams(),
		})
		if eliminated {
			resp.AddToSpecificTeam(teamID, "eliminated", cartridge.Payload{
				"message": "SYSTEM DELETED",
			})
		}
	}
	return resp
}

func (g *Game) StateData() cartridge.Payload {
	out := cartridge.Payload{}
	for k, v := range g.state {
		out[k] = v
	}
	return out
}

func (g *Game) ClientStateData() cartridge.Payload {
	return g.StateData()
}
