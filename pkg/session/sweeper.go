package session

import (
	"context"
	"time"
)

// SweepExpired evicts every session idle for strictly longer than the TTL.
// Live executions are cancelled and awaited before the session leaves the map.
// It returns the number of evicted sessions.
func (r *Registry) SweepExpired() int {
	now := r.cfg.now()

	r.mu.RLock()
	var expired []*Session
	for _, s := range r.sessions {
		if s.idle(now) > r.cfg.ttl {
			expired = append(expired, s)
		}
	}
	r.mu.RUnlock()

	evicted := 0
	for _, s := range expired {
		// Activity since the scan keeps the session alive. Retiring under
		// r.mu keeps Run from starting an execution before the detach.
		r.mu.Lock()
		owner := r.sessions[s.id] == s && s.retireIfIdle(r.cfg.now(), r.cfg.ttl)
		if owner {
			r.retiring[s.id] = s
		}
		r.mu.Unlock()
		if !owner {
			continue
		}
		r.detach(s)

		evicted++
		r.cfg.logger.Info("session expired", "session_id", s.id, "ttl", r.cfg.ttl)
		if r.cfg.hooks.OnEvict != nil {
			r.cfg.hooks.OnEvict(context.Background(), s.id)
		}
	}
	return evicted
}

// StartSweeper launches the background sweep loop. Only the first call has
// an effect; the loop stops when ctx ends or the Registry is closed.
func (r *Registry) StartSweeper(ctx context.Context) {
	r.sweepOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		r.sweepCancel = cancel
		r.sweepDone = make(chan struct{})
		go r.sweepLoop(ctx)
	})
}

func (r *Registry) sweepLoop(ctx context.Context) {
	defer close(r.sweepDone)

	ticker := time.NewTicker(r.cfg.sweepInterval)
	defer ticker.Stop()

	r.cfg.logger.Info("sweeper started", "interval", r.cfg.sweepInterval, "ttl", r.cfg.ttl)
	for {
		select {
		case <-ctx.Done():
			r.cfg.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			r.sweepPass()
		}
	}
}

// sweepPass runs one sweep; a panicking pass is logged and the loop continues.
func (r *Registry) sweepPass() {
	defer func() {
		if rec := recover(); rec != nil {
			r.cfg.logger.Error("sweep pass failed", "panic", rec)
		}
	}()

	if n := r.sweep(); n > 0 {
		r.cfg.logger.Info("expired sessions evicted", "count", n)
	}
}
