package domain

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a progress event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Step names carried by progress events.
const (
	StepStartRun          = "start_run"
	StepPlannerStart      = "planner_start"
	StepIntentDetermined  = "intent_determined"
	StepRetrieveStart     = "retrieve_start"
	StepRetrieveDone      = "retrieve_done"
	StepDirectAnswerStart = "direct_answer_start"
	StepDirectAnswerDone  = "direct_answer_done"
	StepRAGAnswerStart    = "rag_answer_start"
	StepRAGAnswerDone     = "rag_answer_done"
	StepQuizStart         = "quiz_start"
	StepQuizDone          = "quiz_done"
	StepEvaluateStart     = "evaluate_start"
	StepEvaluateDone      = "evaluate_done"
	StepFinalAnswer       = "final_answer"
	StepToolError         = "tool_error"
	StepCancelled         = "cancelled"
)

// ProgressEvent is an immutable record of a step transition.
// The JSON layout is the one consumed by the web UI.
type ProgressEvent struct {
	EventID   string         `json:"event_id"`
	SessionID string         `json:"session_id"`
	Step      string         `json:"step"`
	Tool      string         `json:"tool,omitempty"`
	Message   string         `json:"message"`
	Level     Level          `json:"level"`
	Timestamp time.Time      `json:"ts"`
	Meta      map[string]any `json:"meta"`
}

// EventOption customizes a ProgressEvent while it is being built.
type EventOption func(*ProgressEvent)

// WithTool names the external collaborator involved in the step.
func WithTool(tool string) EventOption {
	return func(e *ProgressEvent) {
		e.Tool = tool
	}
}

// WithLevel overrides the default info level.
func WithLevel(level Level) EventOption {
	return func(e *ProgressEvent) {
		e.Level = level
	}
}

// WithMeta attaches a copy of meta to the event.
func WithMeta(meta map[string]any) EventOption {
	return func(e *ProgressEvent) {
		maps.Copy(e.Meta, meta)
	}
}

// NewProgressEvent builds an event with a fresh ID.
func NewProgressEvent(sessionID, step, message string, at time.Time, opts ...EventOption) ProgressEvent {
	e := ProgressEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		Step:      step,
		Message:   message,
		Level:     LevelInfo,
		Timestamp: at.UTC(),
		Meta:      make(map[string]any),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Clone returns a copy of the event that shares no Meta map with e.
func (e ProgressEvent) Clone() ProgressEvent {
	e.Meta = maps.Clone(e.Meta)
	return e
}

// Outcome is how an execution terminated.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// ExecutionEvent describes the start or the end of one graph execution.
type ExecutionEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	Outcome   Outcome       `json:"outcome,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// NodeEvent represents entry or exit from a graph node.
type NodeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	NodeID    string    `json:"node_id"`
}

// LifecycleHooks defines callbacks for observability. Nil fields are skipped.
type LifecycleHooks struct {
	OnExecutionStart func(context.Context, *ExecutionEvent)
	OnExecutionEnd   func(context.Context, *ExecutionEvent)
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnNodeLeave      func(context.Context, *NodeEvent)
	OnProgress       func(context.Context, *ProgressEvent)
	OnBusy           func(ctx context.Context, sessionID string)
	OnEvict          func(ctx context.Context, sessionID string)
}
