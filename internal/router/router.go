// Package router owns the single active game phase. It dispatches inbound
// events to the active cartridge and fans the returned response envelope out
// to the right audiences through an Emitter.
package router

import (
	"errors"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/registry"
)

// ErrNoDefaultCartridge is returned when a transition target cannot be
// resolved and the default cartridge is missing too. The process is then in
// an undefined phase; this is the one unrecoverable condition in the design.
var ErrNoDefaultCartridge = errors.New("default cartridge not registered")

// Emitter is the delivery surface the router fans responses out through.
// The hub implements it; tests substitute a recorder.
type Emitter interface {
	Broadcast(event string, payload cartridge.Payload)
	ToSession(sessionID, event string, payload cartridge.Payload)
	ToTeam(teamID, event string, payload cartridge.Payload)
	ToTeamOthers(teamID, skipSessionID, event string, payload cartridge.Payload)
	ToAdmin(event string, payload cartridge.Payload)
}

// Router drives the phase state machine. Dispatch and SetState share one
// mutex so handler calls and transitions can never interleave for the same
// cartridge.
type Router struct {
	mu sync.Mutex

	emitter Emitter
	reg     *registry.Registry
	catalog *cartridge.Catalog
	log     *zap.Logger

	current string // active cartridge id; empty before the first transition
}

func New(emitter Emitter, reg *registry.Registry, catalog *cartridge.Catalog, log *zap.Logger) *Router {
	return &Router{
		emitter: emitter,
		reg:     reg,
		catalog: catalog,
		log:     log,
	}
}

// Current returns the active cartridge id.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ClientStateData returns the sanitized state of the active cartridge, for
// attaching to reconnection syncs.
func (r *Router) ClientStateData() cartridge.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	if game := r.catalog.Get(r.current); game != nil {
		return game.ClientStateData()
	}
	return cartridge.Payload{}
}

// Restore re-enters the phase persisted in the registry without emitting the
// usual transition broadcasts. Called once at startup, before any client is
// connected.
func (r *Router) Restore() {
	state, stateData := r.reg.CurrentState()

	r.mu.Lock()
	defer r.mu.Unlock()

	game := r.catalog.Get(state)
	if game == nil {
		r.log.Warn("persisted phase unknown, starting in default",
			zap.String("state", state))
		state = registry.DefaultState
		game = r.catalog.Get(state)
		if game == nil {
			r.log.Error("CRITICAL: default cartridge not registered, no phase active")
			return
		}
		stateData = map[string]any{}
	}

	r.current = state
	if _, err := r.safeEnter(game, stateData); err != nil {
		r.log.Error("restore enter failed", zap.String("state", state), zap.Error(err))
	}
	r.log.Info("phase restored", zap.String("state", state))
}

// SetState transitions to a new phase: exit the active cartridge, resolve
// the target (falling back to the default), persist before entering so a
// crash mid-entry still recovers to the intended phase, enter, then
// broadcast the sanitized phase change.
func (r *Router) SetState(newID string, initData cartridge.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.Info("phase transition", zap.String("from", r.current), zap.String("to", newID))

	if current := r.catalog.Get(r.current); current != nil {
		resp, err := r.safeExit(current)
		if err != nil {
			r.log.Error("cartridge exit failed", zap.String("state", r.current), zap.Error(err))
		}
		r.fanout(resp, nil)
	}

	game := r.catalog.Get(newID)
	if game == nil {
		r.log.Error("phase not found", zap.String("state", newID))
		if newID == registry.DefaultState {
			r.log.Error("CRITICAL: default cartridge not registered, transition aborted")
			return ErrNoDefaultCartridge
		}
		r.log.Info("falling back to default phase")
		newID = registry.DefaultState
		game = r.catalog.Get(newID)
		if game == nil {
			r.log.Error("CRITICAL: default cartridge not registered, transition aborted")
			return ErrNoDefaultCartridge
		}
		initData = cartridge.Payload{}
	}

	r.current = newID
	r.reg.SetState(newID, initData)

	resp, err := r.safeEnter(game, initData)
	if err != nil {
		r.log.Error("cartridge enter failed", zap.String("state", newID), zap.Error(err))
	}
	r.fanout(resp, nil)

	r.emitter.Broadcast("state_change", cartridge.Payload{
		"current_state": newID,
		"state_data":    game.ClientStateData(),
	})
	return nil
}

// Dispatch routes one inbound event to the active cartridge and fans out the
// result. Unknown events and events for other phases are dropped silently; a
// misbehaving handler is contained to an error response for the sender.
func (r *Router) Dispatch(event string, data cartridge.Payload, sessionID string, isAdmin bool) {
	ctx := r.buildContext(sessionID, isAdmin)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == "" {
		r.log.Warn("no active phase, event ignored", zap.String("event", event))
		return
	}
	game := r.catalog.Get(r.current)
	if game == nil {
		r.log.Error("active phase missing from catalog", zap.String("state", r.current))
		return
	}

	if !declares(game, event) {
		// Late events from a previous phase land here and are dropped.
		r.log.Debug("event not handled by active phase",
			zap.String("event", event),
			zap.String("state", r.current))
		return
	}

	resp, err := r.safeHandle(game, event, data, ctx)
	if err != nil {
		r.log.Error("event handler failed",
			zap.String("event", event),
			zap.String("state", r.current),
			zap.Error(err))
		r.emitter.ToSession(sessionID, "error", cartridge.Payload{
			"code":    "GAME_ERROR",
			"message": "Internal game error",
		})
		return
	}
	r.fanout(resp, &ctx)
}

func (r *Router) buildContext(sessionID string, isAdmin bool) cartridge.Context {
	ctx := cartridge.Context{SessionID: sessionID, IsAdmin: isAdmin}
	sess, ok := r.reg.SessionFor(sessionID)
	if !ok {
		return ctx
	}
	ctx.TeamID = sess.TeamID
	ctx.PlayerID = sess.PlayerID
	if team, ok := r.reg.Team(sess.TeamID); ok {
		ctx.TeamName = team.Name
		if p, ok := team.Players[sess.PlayerID]; ok {
			ctx.PlayerName = p.Name
		}
	}
	return ctx
}

func declares(game cartridge.Cartridge, event string) bool {
	for _, name := range game.EventNames() {
		if name == event {
			return true
		}
	}
	return false
}

// safeHandle invokes the handler inside a panic boundary. One bad cartridge
// must never take the process down or corrupt shared state.
func (r *Router) safeHandle(game cartridge.Cartridge, event string, data cartridge.Payload, ctx cartridge.Context) (resp *cartridge.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			resp, err = nil, errors.New("handler panic")
		}
	}()
	return game.HandleEvent(event, data, ctx), nil
}

func (r *Router) safeEnter(game cartridge.Cartridge, initData cartridge.Payload) (resp *cartridge.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("OnEnter panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			resp, err = nil, errors.New("enter panic")
		}
	}()
	return game.OnEnter(initData), nil
}

func (r *Router) safeExit(game cartridge.Cartridge) (resp *cartridge.Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("OnExit panic", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			resp, err = nil, errors.New("exit panic")
		}
	}()
	return game.OnExit(), nil
}

// fanout delivers each populated channel of a response envelope. ctx may be
// nil for lifecycle responses; sender- and team-relative channels are then
// skipped.
func (r *Router) fanout(resp *cartridge.Response, ctx *cartridge.Context) {
	if resp.Empty() {
		return
	}

	for event, payload := range resp.Broadcast {
		r.emitter.Broadcast(event, payload)
	}
	if ctx != nil && ctx.SessionID != "" {
		for event, payload := range resp.ToSender {
			r.emitter.ToSession(ctx.SessionID, event, payload)
		}
	}
	if ctx != nil && ctx.TeamID != "" {
		for event, payload := range resp.ToTeam {
			r.emitter.ToTeam(ctx.TeamID, event, payload)
		}
		for event, payload := range resp.ToTeamOthers {
			r.emitter.ToTeamOthers(ctx.TeamID, ctx.SessionID, event, payload)
		}
	}
	for event, payload := range resp.ToAdmin {
		r.emitter.ToAdmin(event, payload)
	}
	for teamID, events := range resp.ToSpecificTeam {
		for event, payload := range events {
			r.emitter.ToTeam(teamID, event, payload)
		}
	}
	if resp.Err != nil && ctx != nil && ctx.SessionID != "" {
		r.emitter.ToSession(ctx.SessionID, "error", cartridge.Payload{
			"code":    resp.Err.Code,
			"message": resp.Err.Message,
		})
	}
}
