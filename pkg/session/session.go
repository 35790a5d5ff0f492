package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/eventlog"
)

// ToolAgent is the tool name on events emitted by the session itself.
const ToolAgent = "agent"

// Graph runs one orchestration against a session.
type Graph interface {
	Run(ctx context.Context, scope runtime.Scope) error
}

// Execution is the handle of one background graph run.
type Execution struct {
	done    chan struct{}
	cancel  context.CancelFunc
	started time.Time

	// Written before done is closed.
	outcome domain.Outcome
	answer  string
	err     error
}

// Done is closed once the execution has terminated.
func (x *Execution) Done() <-chan struct{} {
	return x.done
}

// Outcome reports how the execution ended. Valid after Done is closed.
func (x *Execution) Outcome() domain.Outcome {
	return x.outcome
}

// Answer is the terminal answer present when the execution ended, if any.
// Valid after Done is closed.
func (x *Execution) Answer() string {
	return x.answer
}

// Err is the failure that ended the execution, if any. Valid after Done is closed.
func (x *Execution) Err() error {
	return x.err
}

func (x *Execution) running() bool {
	select {
	case <-x.done:
		return false
	default:
		return true
	}
}

// Session serializes access to one session's state and execution lifecycle.
// It implements runtime.Scope for its own executions.
type Session struct {
	id        string
	graph     Graph
	publisher Publisher
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
	baseCtx   context.Context

	mu           sync.Mutex
	state        map[string]any
	exec         *Execution
	cancelled    bool
	retired      bool
	detached     chan struct{}
	createdAt    time.Time
	lastActiveAt time.Time
	events       *eventlog.Log
}

// New creates a standalone Session. Sessions are normally created by a Registry.
func New(id string, graph Graph, opts ...Option) *Session {
	return newSession(id, graph, newSettings(opts))
}

func newSession(id string, graph Graph, cfg settings) *Session {
	now := cfg.now()
	return &Session{
		id:           id,
		graph:        graph,
		publisher:    cfg.publisher,
		hooks:        cfg.hooks,
		logger:       cfg.logger,
		now:          cfg.now,
		baseCtx:      cfg.baseCtx,
		state:        make(map[string]any),
		detached:     make(chan struct{}),
		createdAt:    now,
		lastActiveAt: now,
		events:       eventlog.New(cfg.eventCapacity),
	}
}

// SessionID returns the session identifier.
func (s *Session) SessionID() string {
	return s.id
}

// Start launches a graph execution for question and returns immediately.
// If an execution is already active the call is a no-op: it returns the
// active execution and false. A retired session never starts again: Start
// returns nil and false.
func (s *Session) Start(question string) (*Execution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retired {
		s.logger.Warn("session retired, start refused", "session_id", s.id)
		return nil, false
	}
	if s.exec != nil && s.exec.running() {
		s.logger.Warn("session already running, start ignored", "session_id", s.id)
		return s.exec, false
	}

	s.state[domain.KeyQuestion] = question
	delete(s.state, domain.KeyFinalAnswer)
	s.cancelled = false
	s.touchLocked()

	ctx, cancel := context.WithCancel(s.baseCtx)
	x := &Execution{
		done:    make(chan struct{}),
		cancel:  cancel,
		started: s.now(),
	}
	s.exec = x
	go s.execute(ctx, x, question)

	s.logger.Info("session execution started", "session_id", s.id)
	return x, true
}

func (s *Session) execute(ctx context.Context, x *Execution, question string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("execution panicked", "session_id", s.id, "panic", r, "stack", string(debug.Stack()))
			s.fail(x, fmt.Errorf("panic: %v", r))
		}
		x.answer = s.FinalAnswer()
		s.touch()
		s.emitExecution(ctx, s.hooks.OnExecutionEnd, x, true)
		x.cancel()
		close(x.done)
	}()

	s.emitExecution(ctx, s.hooks.OnExecutionStart, x, false)
	x.outcome = domain.OutcomeCompleted
	s.Notify(domain.StepStartRun, "Processing started",
		domain.WithTool(ToolAgent),
		domain.WithMeta(map[string]any{"question": question}),
	)

	err := s.graph.Run(ctx, s)
	switch {
	case err == nil:
		answer := s.FinalAnswer()
		s.Notify(domain.StepFinalAnswer, "Task completed",
			domain.WithTool(ToolAgent),
			domain.WithMeta(map[string]any{"final_length": len(answer)}),
		)
		s.logger.Info("session execution completed", "session_id", s.id)
	case errors.Is(err, context.Canceled) || s.Cancelled():
		x.outcome = domain.OutcomeCancelled
		s.Notify(domain.StepCancelled, "Execution cancelled",
			domain.WithTool(ToolAgent),
			domain.WithLevel(domain.LevelWarn),
		)
		s.logger.Info("session execution cancelled", "session_id", s.id)
	default:
		s.fail(x, err)
	}
}

// fail records an unexpected failure. It never touches the terminal answer.
func (s *Session) fail(x *Execution, err error) {
	x.outcome = domain.OutcomeFailed
	x.err = err
	s.logger.Error("session execution failed", "session_id", s.id, "err", err)
	s.Notify(domain.StepToolError, fmt.Sprintf("Execution failed: %v", err),
		domain.WithTool(ToolAgent),
		domain.WithLevel(domain.LevelError),
		domain.WithMeta(map[string]any{"error": err.Error()}),
	)
}

// Notify records a progress event and forwards it to the publisher.
// Forwarding is best-effort and never blocks the caller.
func (s *Session) Notify(step, message string, opts ...domain.EventOption) {
	s.mu.Lock()
	event := domain.NewProgressEvent(s.id, step, message, s.now(), opts...)
	s.events.Append(event)
	s.touchLocked()
	s.mu.Unlock()

	s.logger.Debug("progress", "session_id", s.id, "step", step, "level", event.Level)
	if s.hooks.OnProgress != nil {
		hooked := event.Clone()
		s.hooks.OnProgress(context.Background(), &hooked)
	}
	s.publisher.Publish(event)
}

// Cancel marks the session cancelled and, if an execution is active,
// cancels it and waits for it to terminate.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	x := s.exec
	s.mu.Unlock()

	if x != nil && x.running() {
		x.cancel()
		<-x.done
		s.logger.Info("session cancelled", "session_id", s.id)
	}
}

// Cleanup cancels and awaits any active execution, then detaches it.
func (s *Session) Cleanup() {
	for {
		s.mu.Lock()
		x := s.exec
		if x == nil || !x.running() {
			s.exec = nil
			s.mu.Unlock()
			s.logger.Debug("session cleaned up", "session_id", s.id)
			return
		}
		s.mu.Unlock()

		x.cancel()
		<-x.done
	}
}

// IsRunning reports whether an execution is attached and not yet terminated.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec != nil && s.exec.running()
}

// Retired reports whether the session was removed, expired or closed.
func (s *Session) Retired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retired
}

// Detached is closed once a retired session has been cleaned up and
// dropped by its Registry.
func (s *Session) Detached() <-chan struct{} {
	return s.detached
}

// retire stops the session from starting executions. It reports false if
// the session was already retired.
func (s *Session) retire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired {
		return false
	}
	s.retired = true
	return true
}

// retireIfIdle retires the session only if it has been idle for strictly
// longer than ttl at now.
func (s *Session) retireIfIdle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retired || now.Sub(s.lastActiveAt) <= ttl {
		return false
	}
	s.retired = true
	return true
}

// Cancelled reports whether cancellation was requested since the last Start.
func (s *Session) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Get reads a state value.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.state[key]
	return v, ok
}

// Set writes a state value.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	s.touchLocked()
}

// State returns a shallow copy of the session state.
func (s *Session) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state)
}

// FinalAnswer returns the terminal answer currently stored, if any.
func (s *Session) FinalAnswer() string {
	v, _ := s.Get(domain.KeyFinalAnswer)
	answer, _ := v.(string)
	return answer
}

// Events returns the retained progress events, oldest first.
func (s *Session) Events() []domain.ProgressEvent {
	return s.events.Snapshot()
}

// ClearHistory empties the event log and resets state. A live execution
// keeps running and writes into the fresh state.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.Clear()
	s.state = make(map[string]any)
	s.touchLocked()
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.touch()
}

// AgeSeconds is the time since the last activity, in seconds.
func (s *Session) AgeSeconds() float64 {
	return s.idle(s.now()).Seconds()
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActiveAt returns the time of the last activity.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// Info returns a point-in-time view of the session.
func (s *Session) Info() domain.SessionInfo {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionInfo{
		ID:           s.id,
		IsRunning:    s.exec != nil && s.exec.running(),
		CreatedAt:    s.createdAt,
		LastActiveAt: s.lastActiveAt,
		AgeSeconds:   now.Sub(s.lastActiveAt).Seconds(),
		EventCount:   s.events.Len(),
	}
}

func (s *Session) idle(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActiveAt)
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.lastActiveAt = s.now()
}

func (s *Session) emitExecution(ctx context.Context, hook func(context.Context, *domain.ExecutionEvent), x *Execution, end bool) {
	if hook == nil {
		return
	}
	now := s.now()
	ev := &domain.ExecutionEvent{Timestamp: now, SessionID: s.id}
	if end {
		ev.Outcome = x.outcome
		ev.Duration = now.Sub(x.started)
	}
	hook(context.WithoutCancel(ctx), ev)
}
