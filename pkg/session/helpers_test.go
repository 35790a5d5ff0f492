package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/testutils"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type graphFunc func(ctx context.Context, scope runtime.Scope) error

func (f graphFunc) Run(ctx context.Context, scope runtime.Scope) error {
	return f(ctx, scope)
}

// blockingGraph parks every execution until release is closed or ctx ends.
type blockingGraph struct {
	release chan struct{}
	entered chan struct{}
}

func newBlockingGraph() *blockingGraph {
	return &blockingGraph{release: make(chan struct{}), entered: make(chan struct{}, 16)}
}

func (g *blockingGraph) Run(ctx context.Context, scope runtime.Scope) error {
	scope.Notify(domain.StepPlannerStart, "parked")
	g.entered <- struct{}{}
	select {
	case <-g.release:
		scope.Set(domain.KeyFinalAnswer, "released")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *blockingGraph) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(waitFor):
		t.Fatal("execution never started")
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (p *recordingPublisher) Publish(e domain.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) Events() []domain.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ProgressEvent(nil), p.events...)
}

type collaborators struct {
	classifier *testutils.Classifier
	retriever  *testutils.Retriever
	generator  *testutils.Generator
	quizzes    *testutils.Quizzes
}

func newCollaborators(intent domain.Intent) *collaborators {
	return &collaborators{
		classifier: &testutils.Classifier{Intent: intent},
		retriever:  &testutils.Retriever{Docs: []string{"doc-a", "doc-b"}},
		generator:  &testutils.Generator{Answer: "generated answer"},
		quizzes: &testutils.Quizzes{
			Quiz:     domain.Quiz{ID: "exam-1", Content: "1. Explain doc-a."},
			Feedback: "All correct",
		},
	}
}

func (c *collaborators) engine(t *testing.T) *runtime.Engine {
	t.Helper()
	e, err := runtime.NewEngine(runtime.Dependencies{
		Classifier: c.classifier,
		Retriever:  c.retriever,
		Generator:  c.generator,
		Quizzes:    c.quizzes,
	})
	require.NoError(t, err)
	return e
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("execution did not terminate")
	}
}

func countSteps(events []domain.ProgressEvent, step string) int {
	n := 0
	for _, e := range events {
		if e.Step == step {
			n++
		}
	}
	return n
}
