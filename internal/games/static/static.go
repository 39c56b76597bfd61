// Package static provides cartridges with no events of their own: phases
// that exist so the TV can show a screen (lobby, victory, intermissions).
package static

import "github.com/y2kparty/console-backend/internal/cartridge"

type Game struct {
	cartridge.Base
	state cartridge.Payload
}

// New returns a display-only cartridge for the given phase id.
func New(id, name string) *Game {
	return &Game{Base: cartridge.Base{GameID: id, GameName: name}}
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
