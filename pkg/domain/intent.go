package domain

import (
	"fmt"
	"strings"
)

// Intent is the routing label produced by the planner.
type Intent string

const (
	IntentGeneral      Intent = "general"
	IntentRAGAnswer    Intent = "rag_answer"
	IntentGenerateQuiz Intent = "generate_quiz"
	IntentEvaluateQuiz Intent = "evaluate_quiz"
)

// Intents lists every routable intent.
var Intents = []Intent{IntentGeneral, IntentRAGAnswer, IntentGenerateQuiz, IntentEvaluateQuiz}

// ParseIntent maps a free-form classifier label to an Intent.
// Surrounding whitespace, quotes, punctuation and case are ignored.
func ParseIntent(label string) (Intent, error) {
	clean := strings.ToLower(strings.Trim(strings.TrimSpace(label), "\"'`.:;!"))
	clean = strings.ReplaceAll(clean, "-", "_")
	clean = strings.ReplaceAll(clean, " ", "_")
	for _, intent := range Intents {
		if clean == string(intent) {
			return intent, nil
		}
	}
	return IntentGeneral, fmt.Errorf("%w: %q", ErrUnknownIntent, label)
}
