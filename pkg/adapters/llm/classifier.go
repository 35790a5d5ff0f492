package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/prompts"
)

// Classifier implements ports.IntentClassifier by asking a generator for a label.
type Classifier struct {
	gen         ports.TextGenerator
	prompts     *prompts.Set
	temperature float64
}

// NewClassifier creates a Classifier. A nil set uses the embedded prompts.
func NewClassifier(gen ports.TextGenerator, set *prompts.Set, temperature float64) *Classifier {
	if set == nil {
		set = prompts.Default()
	}
	return &Classifier{gen: gen, prompts: set, temperature: temperature}
}

// ClassifyIntent returns the intent named by the model. Replies that name no
// known intent yield IntentGeneral and an error wrapping domain.ErrUnknownIntent.
func (c *Classifier) ClassifyIntent(ctx context.Context, question string) (domain.Intent, error) {
	prompt, err := c.prompts.Render(prompts.Classify, map[string]any{"question": question})
	if err != nil {
		return domain.IntentGeneral, err
	}
	reply, err := c.gen.GenerateText(ctx, prompt, c.temperature)
	if err != nil {
		return domain.IntentGeneral, fmt.Errorf("classify intent: %w", err)
	}
	return parseLabel(reply)
}

func parseLabel(reply string) (domain.Intent, error) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if i := strings.Index(line, ":"); i >= 0 && strings.EqualFold(strings.TrimSpace(line[:i]), "label") {
			line = line[i+1:]
		}
		intent, err := domain.ParseIntent(line)
		if err == nil {
			return intent, nil
		}
		break
	}

	// Chatty replies: accept a single intent mentioned anywhere.
	lower := strings.ToLower(reply)
	var found []domain.Intent
	for _, intent := range domain.Intents {
		if strings.Contains(lower, string(intent)) {
			found = append(found, intent)
		}
	}
	if len(found) == 1 {
		return found[0], nil
	}
	return domain.ParseIntent(reply)
}
