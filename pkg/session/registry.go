package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"golang.org/x/sync/semaphore"
)

// Registry owns all sessions, bounds concurrent executions across them
// and evicts idle sessions.
type Registry struct {
	graph   Graph
	cfg     settings
	permits *semaphore.Weighted

	mu       sync.RWMutex
	sessions map[string]*Session
	retiring map[string]*Session
	closed   bool

	sweepOnce   sync.Once
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
	sweep       func() int

	cleanups sync.WaitGroup
}

// NewRegistry creates a Registry whose sessions run graph.
func NewRegistry(graph Graph, opts ...Option) *Registry {
	cfg := newSettings(opts)
	r := &Registry{
		graph:    graph,
		cfg:      cfg,
		permits:  semaphore.NewWeighted(cfg.concurrency),
		sessions: make(map[string]*Session),
		retiring: make(map[string]*Session),
	}
	r.sweep = r.SweepExpired
	return r
}

// CreateSession returns the session registered under id, creating it if needed.
func (r *Registry) CreateSession(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(id)
}

func (r *Registry) createLocked(id string) *Session {
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := newSession(id, r.graph, r.cfg)
	r.sessions[id] = s
	r.cfg.logger.Info("session created", "session_id", id)
	return s
}

// resolve returns the session that executions for id must go through: a
// session still being retired takes precedence over a fresh one.
func (r *Registry) resolve(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.retiring[id]; ok {
		return s
	}
	return r.createLocked(id)
}

// retireLocked marks s as retiring. The caller must hold r.mu and, when it
// gets true, finish the retirement with detach.
func (r *Registry) retireLocked(s *Session) bool {
	if !s.retire() {
		return false
	}
	r.retiring[s.id] = s
	return true
}

// detach cleans up a retiring session and drops it from the registry.
func (r *Registry) detach(s *Session) {
	s.Cleanup()

	r.mu.Lock()
	if r.retiring[s.id] == s {
		delete(r.retiring, s.id)
	}
	if r.sessions[s.id] == s {
		delete(r.sessions, s.id)
	}
	r.mu.Unlock()
	close(s.detached)
}

// GetSession returns the session registered under id.
func (r *Registry) GetSession(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// RemoveSession detaches the session and cleans it up in the background.
// The session can no longer start executions, and a later Run for the same
// id waits for the cleanup before creating a new session.
// Use Close to wait for pending cleanups.
func (r *Registry) RemoveSession(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	owner := ok && r.retireLocked(s)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	if owner {
		r.cleanups.Add(1)
		go func() {
			defer r.cleanups.Done()
			r.detach(s)
		}()
	}
	r.cfg.logger.Info("session removed", "session_id", id)
	return nil
}

// CancelSession cancels the active execution of a session and waits for it.
func (r *Registry) CancelSession(id string) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.Cancel()
	return nil
}

// ListSessions returns every session ordered by creation time.
func (r *Registry) ListSessions() []domain.SessionInfo {
	r.mu.RLock()
	infos := make([]domain.SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// GetEvents returns a snapshot of the session's event log.
func (r *Registry) GetEvents(id string) ([]domain.ProgressEvent, error) {
	s, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Events(), nil
}

// ClearSessionHistory empties the event log and state of a session.
func (r *Registry) ClearSessionHistory(id string) error {
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.ClearHistory()
	return nil
}

// Run answers question in session id, creating the session if needed.
//
// A session that is already running yields domain.BusyMessage. Otherwise Run
// waits for a permit, starts one execution and waits for it to finish. The
// permit is held until the execution terminates, even if ctx ends first.
// If the session under id is being removed or evicted, Run waits until it is
// gone and runs in a fresh session.
// The returned error is non-nil only when ctx ends or the registry is closed.
func (r *Registry) Run(ctx context.Context, question, id string) (string, error) {
	for {
		if r.isClosed() {
			return "", domain.ErrRegistryClosed
		}

		s := r.resolve(id)
		if s.Retired() {
			if err := awaitDetached(ctx, s); err != nil {
				return "", err
			}
			continue
		}
		if s.IsRunning() {
			r.busy(ctx, id)
			return domain.BusyMessage, nil
		}

		if err := r.permits.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("wait for execution permit: %w", err)
		}

		x, started := s.Start(question)
		if x == nil {
			// Retired while waiting for the permit.
			r.permits.Release(1)
			continue
		}
		if !started {
			r.permits.Release(1)
			r.busy(ctx, id)
			return domain.BusyMessage, nil
		}
		go func() {
			<-x.Done()
			r.permits.Release(1)
		}()

		select {
		case <-x.Done():
		case <-ctx.Done():
			return "", ctx.Err()
		}

		switch {
		case x.Outcome() == domain.OutcomeCancelled:
			return domain.CancelledMessage, nil
		case x.Answer() != "":
			return x.Answer(), nil
		default:
			return domain.NoAnswerMessage, nil
		}
	}
}

func awaitDetached(ctx context.Context, s *Session) error {
	select {
	case <-s.Detached():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the Sweeper, cleans up every session and waits for pending
// cleanups until ctx ends.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	var owned []*Session
	for _, s := range r.sessions {
		if r.retireLocked(s) {
			owned = append(owned, s)
		}
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	r.sweepOnce.Do(func() {})
	if r.sweepCancel != nil {
		r.sweepCancel()
		<-r.sweepDone
	}

	for _, s := range owned {
		r.cleanups.Add(1)
		go func() {
			defer r.cleanups.Done()
			r.detach(s)
		}()
	}

	done := make(chan struct{})
	go func() {
		r.cleanups.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) lookup(id string) (*Session, error) {
	s, ok := r.GetSession(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func (r *Registry) busy(ctx context.Context, id string) {
	r.cfg.logger.Warn("session busy", "session_id", id)
	if r.cfg.hooks.OnBusy != nil {
		r.cfg.hooks.OnBusy(ctx, id)
	}
}
