// Package pictureguess is the free-text picture round: teams submit one
// guess each, teammates see each other type, the admin grades by hand.
package pictureguess

import (
	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

type answer struct {
	GuessText  string
	PictureID  any
	PlayerID   string
	PlayerName string
}

type Game struct {
	cartridge.Base
	reg *registry.Registry

	pictureID any
	imageURL  string
	hint      string
	answers   map[string]answer // team id -> latest guess
}

func New(reg *registry.Registry) *Game {
	g := &Game{
		Base: cartridge.Base{GameID: "PICTUREGUESS", GameName: "Picture Guess"},
		reg:  reg,
	}
	g.Players = map[string]cartridge.HandlerFunc{
		"submit_picture_guess": g.handleSubmit,
		"picture_guess_typing": g.handleTyping,
	}
	g.Admin = map[string]cartridge.HandlerFunc{
		"grade_picture_guess": g.handleGrade,
		"reveal_picture":      g.handleReveal,
		"show_picture":        g.handleShow,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	g.pictureID = initData["picture_id"]
	g.imageURL = initData.String("image_url")
	g.hint = initData.String("hint")
	g.answers = map[string]answer{}
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	g.answers = nil
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

	guessText := data.String("guess_text")
	g.answers[teamID] = answer{
		GuessText:  guessText,
		PictureID:  data["picture_id"],
		PlayerID:   ctx.PlayerID,
		PlayerName: ctx.PlayerName,
	}

	resp := cartridge.NewResponse()
	resp.AddToAdmin("picture_guess_received", cartridge.Payload{
		"team_id":     teamID,
		"team_name":   team.Name,
		"player_id":   ctx.PlayerID,
		"player_name": ctx.PlayerName,
		"guess_text":  guessText,
		"picture_id":  data["picture_id"],
	})
	resp.AddToSpecificTeam(teamID, "picture_guess_submitted", cartridge.Payload{
		"player_id":   ctx.PlayerID,
		"player_name": ctx.PlayerName,
		"guess_text":  guessText,
	})
	resp.AddBroadcast("submission_status", cartridge.Payload{
		"submitted_count": len(g.answers),
		"total_teams":     len(g.reg.TeamIDs()),
	})
	return resp
}

func (g *Game) handleTyping(data cartridge.Payload, ctx cartridge.Context) *cartridge.Response {
	resp := cartridge.NewResponse()
	if ctx.TeamID != "" {
		resp.AddToTeamOthers("picture_guess_sync", cartridge.Payload{
			"text":             data.String("text"),
			"from_player_id":   ctx.PlayerID,
			"from_player_name": ctx.PlayerName,
		})
	}
	return resp
}

func (g *Game) handleGrade(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	teamID := data.String("team_id")
	correct := data.Bool("correct", false)
	points := data.Int("points", 0)

	awarded := 0
	if correct {
		awarded = points
	}

	resp := cartridge.NewResponse()
	resp.AddToSpecificTeam(teamID, "picture_guess_result", cartridge.Payload{
		"correct":        correct,
		"points_awarded": awarded,
	})

	if correct && points != 0 {
		g.reg.AddPoints(teamID, points, "Picture guess correct")
		resp.AddBroadcast("score_update", cartridge.Payload{
			"scores": g.reg.Scores(),
			"teams":  g.reg.TeamsInfo(),
		})
	}
	return resp
}

func (g *Game) handleReveal(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	var guesses []cartridge.Payload
	for teamID, ans := range g.answers {
		team, ok := g.reg.Team(teamID)
		if !ok {
			continue
		}
		guesses = append(guesses, cartridge.Payload{
			"team_id":     teamID,
			"team_name":   team.Name,
			"guess_text":  ans.GuessText,
			"player_name": ans.PlayerName,
		})
	}

	resp := cartridge.NewResponse().AddBroadcast("picture_revealed", cartridge.Payload{
		"picture_id":     data["picture_id"],
		"correct_answer": data.String("correct_answer"),
		"team_guesses":   guesses,
	})

	g.answers = map[string]answer{}
	return resp
}

func (g *Game) handleShow(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	return cartridge.NewResponse().AddBroadcast("show_picture", cartridge.Payload{
		"picture_id": data["picture_id"],
		"image_url":  data.String("image_url"),
		"hint":       data.String("hint"),
	})
}

func (g *Game) StateData() cartridge.Payload {
	answers := cartridge.Payload{}
	for teamID, ans := range g.answers {
		answers[teamID] = cartridge.Payload{
			"guess_text":  ans.GuessText,
			"picture_id":  ans.PictureID,
			"player_id":   ans.PlayerID,
			"player_name": ans.PlayerName,
		}
	}
	return cartridge.Payload{
		"picture_id": g.pictureID,
		"image_url":  g.imageURL,
		"hint":       g.hint,
		"answers":    answers,
	}
}

// ClientStateData hides other teams' submissions.
func (g *Game) ClientStateData() cartridge.Payload {
	return cartridge.Payload{
		"picture_id": g.pictureID,
		"image_url":  g.imageURL,
		"hint":       g.hint,
	}
}
