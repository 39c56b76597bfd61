package timer

import (
	"testing"
	"time"

	"github.com/y2kparty/console-backend/internal/cartridge"
)

func control(g *Game, data cartridge.Payload) *cartridge.Response {
	return g.HandleEvent("timer_control", data, cartridge.Context{})
}

func TestStart(t *testing.T) {
	g := New()
	g.OnEnter(cartridge.Payload{})

	resp := control(g, cartridge.Payload{"action": "start", "duration_seconds": 60, "message": "GO"})
	sync := resp.Broadcast["timer_sync"]
	if sync["action"] != "start" || sync["remaining_seconds"] != 60 || sync["message"] != "GO" {
		t.Fatalf("timer_sync = %v", sync)
	}
}

func TestPauseAndResume(t *testing.T) {
	g := New()
	g.OnEnter(cartridge.Payload{"duration_seconds": 120})

	control(g, cartridge.Payload{"action": "start", "duration_seconds": 120})
	g.startTime = time.Now().Add(-10 * time.Second)

	resp := control(g, cartridge.Payload{"action": "pause"})
	sync := resp.Broadcast["timer_sync"]
	remaining := sync["remaining_seconds"].(int)
	if remaining > 110 || remaining < 108 {
		t.Fatalf("remaining after 10s = %d", remaining)
	}

	// Pausing twice must not double-subtract.
	resp = control(g, cartridge.Payload{"action": "pause"})
	if resp.Broadcast["timer_sync"]["remaining_seconds"] != remaining {
		t.Fatal("second pause changed remaining time")
	}

	resp = control(g, cartridge.Payload{"action": "resume"})
	if resp.Broadcast["timer_sync"]["remaining_seconds"] != remaining {
		t.Fatal("resume changed remaining time")
	}
}

func TestPauseNeverGoesNegative(t *testing.T) {
	g := New()
	g.OnEnter(cartridge.Payload{})

	control(g, cartridge.Payload{"action": "start", "duration_seconds": 5})
	g.startTime = time.Now().Add(-time.Minute)

	resp := control(g, cartridge.Payload{"action": "pause"})
	if resp.Broadcast["timer_sync"]["remaining_seconds"] != 0 {
		t.Fatalf("remaining = %v", resp.Broadcast["timer_sync"]["remaining_seconds"])
	}
}

func TestReset(t *testing.T) {
	g := New()
	g.OnEnter(cartridge.Payload{})

	control(g, cartridge.Payload{"action": "start", "duration_seconds": 60})
	resp := control(g, cartridge.Payload{"action": "reset", "duration_seconds": 90})
	sync := resp.Broadcast["timer_sync"]
	if sync["remaining_seconds"] != 90 || sync["total_seconds"] != 90 {
		t.Fatalf("timer_sync = %v", sync)
	}
}

func TestUnknownActionIsNoop(t *testing.T) {
	g := New()
	g.OnEnter(cartridge.Payload{})
	if resp := control(g, cartridge.Payload{"action": "warp"}); !resp.Empty() {
		t.Fatal("unknown action must not emit")
	}
}
