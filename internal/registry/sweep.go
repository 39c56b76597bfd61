package registry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunSweeper periodically removes stale sessions until ctx is cancelled.
// The ticker keeps firing even if a sweep fails, so a transient error can
// never silently stop the cleanup.
func (r *Registry) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepStaleSessions()
		}
	}
}

// SweepStaleSessions removes sessions idle past SessionTTL. Teams and
// players are never touched; only the ephemeral connection bindings go.
func (r *Registry) SweepStaleSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for sid, sess := range r.sessions {
		if now.Sub(sess.LastSeen) > SessionTTL {
			delete(r.sessions, sid)
			removed++
		}
	}
	if removed > 0 {
		r.save()
		r.log.Info("stale sessions cleaned", zap.Int("count", removed))
	}
	return removed
}
