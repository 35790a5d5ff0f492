package ports

import (
	"context"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// IntentClassifier labels a question. Callers treat any error as IntentGeneral.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, question string) (domain.Intent, error)
}

// Retriever fetches documents relevant to a query.
// An empty result is valid; callers degrade errors to an empty result.
type Retriever interface {
	RetrieveDocuments(ctx context.Context, query string) ([]string, error)
}

// TextGenerator drafts text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, temperature float64) (string, error)
}

// QuizService generates quizzes from study material and grades answers.
type QuizService interface {
	GenerateQuiz(ctx context.Context, material string) (domain.Quiz, error)
	GradeQuiz(ctx context.Context, quizID, answers string) (string, error)
}

// ProgressSink delivers a progress event to an external consumer.
// Implementations must honour ctx deadlines.
type ProgressSink interface {
	Deliver(ctx context.Context, event domain.ProgressEvent) error
}

// ProgressSinkFunc adapts a function to ProgressSink.
type ProgressSinkFunc func(ctx context.Context, event domain.ProgressEvent) error

// Deliver calls f.
func (f ProgressSinkFunc) Deliver(ctx context.Context, event domain.ProgressEvent) error {
	return f(ctx, event)
}
