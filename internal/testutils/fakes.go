// Package testutils provides fakes for the agent service collaborators.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// Classifier returns a fixed intent.
type Classifier struct {
	Intent domain.Intent
	Err    error
}

func (c *Classifier) ClassifyIntent(ctx context.Context, question string) (domain.Intent, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.Intent, c.Err
}

// Retriever returns fixed documents.
type Retriever struct {
	Docs []string
	Err  error
}

func (r *Retriever) RetrieveDocuments(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Docs, r.Err
}

// Generator returns a fixed answer. When Gate is set, every call blocks until
// the gate is closed or ctx ends; Entered receives one value per blocked call.
type Generator struct {
	Answer  string
	Err     error
	Gate    chan struct{}
	Entered chan struct{}

	mu      sync.Mutex
	prompts []string
}

func (g *Generator) GenerateText(ctx context.Context, prompt string, temperature float64) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Gate != nil {
		if g.Entered != nil {
			select {
			case g.Entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-g.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.Answer, g.Err
}

// Prompts returns the prompts received so far.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Quizzes is a fixed QuizService.
type Quizzes struct {
	Quiz     domain.Quiz
	GenErr   error
	Feedback string
	GradeErr error

	mu       sync.Mutex
	material []string
	graded   []string
}

func (q *Quizzes) GenerateQuiz(ctx context.Context, material string) (domain.Quiz, error) {
	q.mu.Lock()
	q.material = append(q.material, material)
	q.mu.Unlock()
	return q.Quiz, q.GenErr
}

func (q *Quizzes) GradeQuiz(ctx context.Context, quizID, answers string) (string, error) {
	q.mu.Lock()
	q.graded = append(q.graded, quizID+":"+answers)
	q.mu.Unlock()
	return q.Feedback, q.GradeErr
}

// Material returns the material passed to GenerateQuiz.
func (q *Quizzes) Material() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.material...)
}

// Graded returns "quizID:answers" for every GradeQuiz call.
func (q *Quizzes) Graded() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.graded...)
}

// Sink records delivered events.
type Sink struct {
	Err error

	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (s *Sink) Deliver(ctx context.Context, event domain.ProgressEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return s.Err
}

// Events returns the delivered events.
func (s *Sink) Events() []domain.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ProgressEvent(nil), s.events...)
}

// Steps extracts the step names of events.
func Steps(events []domain.ProgressEvent) []string {
	steps := make([]string, len(events))
	for i, e := range events {
		steps[i] = e.Step
	}
	return steps
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a Clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
