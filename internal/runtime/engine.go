package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/prompts"
)

// Scope is the view of one session an execution runs against.
// Implementations serialize access to the underlying state.
type Scope interface {
	SessionID() string
	Get(key string) (any, bool)
	Set(key string, value any)
	Notify(step, message string, opts ...domain.EventOption)
	Cancelled() bool
}

// Dependencies are the external collaborators the graph calls.
type Dependencies struct {
	Classifier ports.IntentClassifier
	Retriever  ports.Retriever
	Generator  ports.TextGenerator
	Quizzes    ports.QuizService
}

// Engine runs the orchestration graph.
type Engine struct {
	classifier ports.IntentClassifier
	retriever  ports.Retriever
	generator  ports.TextGenerator
	quizzes    ports.QuizService

	prompts     *prompts.Set
	temperature float64
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithPrompts sets the prompt templates.
func WithPrompts(set *prompts.Set) EngineOption {
	return func(e *Engine) {
		e.prompts = set
	}
}

// WithAnswerTemperature sets the sampling temperature used for answers.
func WithAnswerTemperature(t float64) EngineOption {
	return func(e *Engine) {
		e.temperature = t
	}
}

// WithLifecycleHooks registers node enter/leave hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine. Every dependency is required.
func NewEngine(deps Dependencies, opts ...EngineOption) (*Engine, error) {
	var missing []error
	if deps.Classifier == nil {
		missing = append(missing, errors.New("classifier is required"))
	}
	if deps.Retriever == nil {
		missing = append(missing, errors.New("retriever is required"))
	}
	if deps.Generator == nil {
		missing = append(missing, errors.New("generator is required"))
	}
	if deps.Quizzes == nil {
		missing = append(missing, errors.New("quiz service is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	e := &Engine{
		classifier:  deps.Classifier,
		retriever:   deps.Retriever,
		generator:   deps.Generator,
		quizzes:     deps.Quizzes,
		prompts:     prompts.Default(),
		temperature: 0.2,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes the graph from EntryNode until a terminal node finishes.
// Collaborator failures are turned into answers by the steps; Run only
// returns an error when the execution is cancelled or a step cannot run.
func (e *Engine) Run(ctx context.Context, scope Scope) error {
	node := EntryNode
	for node != NodeEnd {
		if err := checkpoint(ctx, scope); err != nil {
			return err
		}

		e.emitNode(ctx, e.hooks.OnNodeEnter, scope, node)
		next, err := e.step(ctx, node, scope)
		e.emitNode(ctx, e.hooks.OnNodeLeave, scope, node)
		if err != nil {
			return fmt.Errorf("node %s: %w", node, err)
		}

		e.logger.Debug("node finished", "session_id", scope.SessionID(), "node", node, "next", next)
		node = next
	}
	return nil
}

func (e *Engine) step(ctx context.Context, node NodeID, scope Scope) (NodeID, error) {
	switch node {
	case NodePlanner:
		return e.plan(ctx, scope)
	case NodeRetrieve:
		return e.retrieve(ctx, scope)
	case NodeDirectAnswer:
		return e.directAnswer(ctx, scope)
	case NodeRAGAnswer:
		return e.ragAnswer(ctx, scope)
	case NodeCreateQuiz:
		return e.createQuiz(ctx, scope)
	case NodeEvaluateQuiz:
		return e.evaluateQuiz(ctx, scope)
	default:
		return NodeEnd, fmt.Errorf("unknown node %q", node)
	}
}

// checkpoint reports whether the execution must stop at a step boundary.
func checkpoint(ctx context.Context, scope Scope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if scope.Cancelled() {
		return context.Canceled
	}
	return nil
}

func (e *Engine) emitNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), scope Scope, node NodeID) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		Timestamp: time.Now(),
		SessionID: scope.SessionID(),
		NodeID:    string(node),
	})
}
