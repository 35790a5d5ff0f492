package testutils

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// Scope is an in-memory session view for driving the graph directly.
type Scope struct {
	ID        string
	cancelled atomic.Bool

	mu     sync.Mutex
	state  map[string]any
	events []domain.ProgressEvent
}

// NewScope returns a Scope whose state starts with question.
func NewScope(id, question string) *Scope {
	return &Scope{ID: id, state: map[string]any{domain.KeyQuestion: question}}
}

func (s *Scope) SessionID() string { return s.ID }

func (s *Scope) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[key]
	return v, ok
}

func (s *Scope) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
}

func (s *Scope) Notify(step, message string, opts ...domain.EventOption) {
	e := domain.NewProgressEvent(s.ID, step, message, time.Now(), opts...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *Scope) Cancelled() bool { return s.cancelled.Load() }

// Cancel raises the cancelled flag.
func (s *Scope) Cancel() { s.cancelled.Store(true) }

// Events returns the emitted events.
func (s *Scope) Events() []domain.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProgressEvent(nil), s.events...)
}
