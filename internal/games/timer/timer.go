// Package timer is the countdown cartridge. The server only bookkeeps
// wall-clock state; clients render the ticking locally off timer_sync.
package timer

import (
	"time"

	"github.com/y2kparty/console-backend/internal/cartridge"
)

const defaultDuration = 180

type Game struct {
	cartridge.Base

	totalSeconds     int
	remainingSeconds int
	durationSeconds  int
	startTime        time.Time
	paused           bool
	message          string
}

func New() *Game {
	g := &Game{Base: cartridge.Base{GameID: "TIMER", GameName: "Timer"}}
	g.Players = map[string]cartridge.HandlerFunc{
		"timer_control": g.handleControl,
	}
	return g
}

func (g *Game) OnEnter(initData cartridge.Payload) *cartridge.Response {
	duration := initData.Int("duration_seconds", defaultDuration)
	g.totalSeconds = duration
	g.remainingSeconds = duration
	g.durationSeconds = duration
	g.startTime = time.Time{}
	g.paused = false
	g.message = initData.String("message")
	return cartridge.NewResponse()
}

func (g *Game) OnExit() *cartridge.Response {
	return cartridge.NewResponse()
}

func (g *Game) handleControl(data cartridge.Payload, _ cartridge.Context) *cartridge.Response {
	action := data.String("action")
	duration := data.Int("duration_seconds", defaultDuration)
	message := data.String("message")

	resp := cartridge.NewResponse()

	switch action {
	case "start":
		g.start(duration, message)
		resp.AddBroadcast("timer_sync", cartridge.Payload{
			"action":            "start",
			"remaining_seconds": duration,
			"total_seconds":     duration,
			"message":           message,
		})
	case "pause":
		remaining := g.pause()
		resp.AddBroadcast("timer_sync", cartridge.Payload{
			"action":            "pause",
			"remaining_seconds": remaining,
			"total_seconds":     g.totalSeconds,
		})
	case "resume":
		remaining := g.resume()
		resp.AddBroadcast("timer_sync", cartridge.Payload{
			"action":            "resume",
			"remaining_seconds": remaining,
			"total_seconds":     g.totalSeconds,
		})
	case "reset":
		g.reset(duration)
		resp.AddBroadcast("timer_sync", cartridge.Payload{
			"action":            "reset",
			"remaining_seconds": duration,
			"total_seconds":     duration,
		})
	}
	return resp
}

func (g *Game) start(duration int, message string) {
	g.totalSeconds = duration
	g.remainingSeconds = duration
	g.startTime = time.Now()
	g.paused = false
	g.message = message
}

func (g *Game) pause() int {
	if !g.paused {
		elapsed := int(time.Since(g.startTime).Seconds())
		g.remainingSeconds = max(0, g.remainingSeconds-elapsed)
		g.paused = true
	}
	return g.remainingSeconds
}

func (g *Game) resume() int {
	if g.paused {
		g.startTime = time.Now()
		g.paused = false
	}
	return g.remainingSeconds
}

func (g *Game) reset(duration int) {
	if duration > 0 {
		g.totalSeconds = duration
	}
	g.remainingSeconds = g.totalSeconds
	g.startTime = time.Time{}
	g.paused = false
}

func (g *Game) StateData() cartridge.Payload {
	return cartridge.Payload{
		"total_seconds":     g.totalSeconds,
		"remaining_seconds": g.remainingSeconds,
		"duration_seconds":  g.durationSeconds,
		"paused":            g.paused,
		"message":           g.message,
	}
}

func (g *Game) ClientStateData() cartridge.Payload {
	return cartridge.Payload{
		"duration_seconds": g.durationSeconds,
		"message":          g.message,
	}
}
