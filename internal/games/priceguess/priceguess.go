// Package priceguess is the Price-Is-Right round: each team guesses a
// price, closest without going over wins. Points pay out in tiers down
// to fourth place; going over busts the guess entirely.
package priceguess

import (
	"fmt"
	"sort"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

// pointTiers pays 1st through 4th closest valid guess.
var pointTiers = []int{100, 50, 25, 10}

type guess struct {
	Amount     float64
	ProductID  any
	PlayerID   string
	PlayerName string
}

type Game struct {
	cartridge.Base
	reg *registry.Registry

	productID   any
	imageURL    string
	hint        string
	actualPrice any
	guesses     map[string]guess // team id -> latest guess
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "PRICEGUESS", GameName: "Price Guess"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"submit_price_guess": g.handleSubmit,
		"price_guess_typing": g.handleTyping,
	}
	g.Admin = map[string]cartridge.HandlerFunc{
		"reveal_price":       g.handleReveal,
		"show_price_product": g.handleShowProduct,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	g.productID = initData["product_id"]
	g.imageURL = initData.String("image_url")
	g.hint = initData.String("hint")
	g.actualPrice = initData["actual_price"]
	g.guesses = map[string]guess{}
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	g.guesses = nil
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

	amount, ok := data.Float("guess_amount")
	if !ok {
		return cartridge.ErrorResponse("INVALID_AMOUNT", "Invalid price format")
	}
	if amount < 0 {
		return cartridge.ErrorResponse("INVALID_AMOUNT", "Price must be positive")
	}

	g.guesses[teamID] = guess{
		Amount:     amount,
		ProductID:  data["product_id"],
		PlayerID:   ctx.PlayerID,
		PlayerName: ctx.PlayerName,
	}

	resp := cartridge.NewResponse()
	resp.AddToAdmin("price_guess_received", cartridge.Payload{
		"team_id":      teamID,
		"team_name":    team.Name,
		"player_id":    ctx.PlayerID,
		"player_name":  ctx.PlayerName,
		"guess_amount": amount,
		"product_id":   data["product_id"],
	})
	resp.AddToSpecificTeam(teamID, "price_guess_submitted", cartridge.Payload{
		"player_id":    ctx.PlayerID,
		"player_name":  ctx.PlayerName,
		"guess_amount": amount,
	})
	resp.AddBroadcast("submission_status", cartridge.Payload{
		"submitted_count": len(g.guesses),
		"total_teams":     len(g.reg.TeamIDs()),
	})
	return resp
}

func (g *Game) handleTyping(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	resp := cartridge.NewResponse()
	if ctx.TeamID != "" {
		resp.AddToTeamOthers("price_guess_sync", cartridge.Payload{
			"text":             data.String("text"),
			"from_player_id":   ctx.PlayerID,
			"from_player_name": ctx.PlayerName,
		})
	}
	return resp
}

func (g *Game) handleReveal(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	actualPrice, ok := data.Float("actual_price")
	if !ok {
		return cartridge.ErrorResponse("INVALID_PRICE", "Invalid actual price")
	}

	var valid, bust []cartridge.Payload
	for teamID, gs := range g.guesses {
		team, ok := g.reg.Team(teamID)
		if !ok {
			continue
		}
		info := cartridge.Payload{
			"team_id":      teamID,
			"team_name":    team.Name,
			"guess_amount": gs.Amount,
			"player_name":  gs.PlayerName,
		}
		if gs.Amount > actualPrice {
			info["status"] = "bust"
			info["points_awarded"] = 0
			bust = append(bust, info)
		} else {
			info["status"] = "valid"
			info["difference"] = actualPrice - gs.Amount
			valid = append(valid, info)
		}
	}

	// Closest without going over wins; smaller difference ranks higher.
	sort.Slice(valid, func(i, j int) bool {
		return valid[i]["difference"].(float64) < valid[j]["difference"].(float64)
	})

	var winnerTeamID any
	totalAwarded := 0
	for i, info := range valid {
		info["rank"] = i + 1
		if i < len(pointTiers) {
			points := pointTiers[i]
			info["points_awarded"] = points
			g.reg.AddPoints(info["team_id"].(string), points, fmt.Sprintf("Price guess #%d", i+1))
			totalAwarded += points
			if i == 0 {
				info["status"] = "winner"
				winnerTeamID = info["team_id"]
			}
		} else {
			info["points_awarded"] = 0
		}
	}

	all := append(append([]cartridge.Payload{}, valid...), bust...)
	sort.Slice(all, func(i, j int) bool {
		return all[i]["guess_amount"].(float64) < all[j]["guess_amount"].(float64)
	})

	resp := cartridge.NewResponse()
	resp.AddBroadcast("price_revealed", cartridge.Payload{
		"product_id":     data["product_id"],
		"actual_price":   actualPrice,
		"winner_team_id": winnerTeamID,
		"team_guesses":   all,
		"points_awarded": totalAwarded,
	})
	if totalAwarded > 0 {
		resp.AddBroadcast("score_update", cartridge.Payload{
			"scores": g.reg.Scores(),
			"teams":  g.reg.TeamsInfo(),
		})
	}

	g.guesses = map[string]guess{}
	return resp
}

func (g *Game) handleShowProduct(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	return cartridge.NewResponse().AddBroadcast("show_price_product", cartridge.Payload{
		"product_id": data["product_id"],
		"image_url":  data.String("image_url"),
		"hint":       data.String("hint"),
	})
}

func (g *Game) StateData() cartridge.Payload {
	guesses := cartridge.Payload{}
	for teamID, gs := range g.guesses {
		guesses[teamID] = cartridge.Payload{
			"guess_amount": gs.Amount,
			"product_id":   gs.ProductID,
			"player_id":    gs.PlayerID,
			"player_name":  gs.PlayerName,
		}
	}
	return cartridge.Payload{
		"product_id":   g.productID,
		"image_url":    g.imageURL,
		"hint":         g.hint,
		"actual_price": g.actualPrice,
		"guesses":      guesses,
	}
}

// ClientStateData strips the actual price and the other teams' guesses.
func (g *Game) ClientStateData() cartridge.Payload {
	return cartridge.Payload{
		"product_id": g.productID,
		"image_url":  g.imageURL,
		"hint":       g.hint,
	}
}
