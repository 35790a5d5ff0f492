package graph_test

import (
	"strings"
	"testing"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/presentation/graph"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/runtime"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(runtime.Nodes(), runtime.Edges(), nil)

	tests := []struct {
		name     string
		contains string
	}{
		{name: "Header", contains: "graph TD\n"},
		{name: "Entry Shape", contains: `planner(("planner"))`},
		{name: "Retrieve Shape", contains: `retrieve[["retrieve"]]`},
		{name: "Terminal Shape", contains: `rag_answer(["rag_answer"])`},
		{name: "Direct Edge", contains: `planner -- "general" --> direct_answer`},
		{name: "Shared Edge", contains: `planner -- "rag_answer / generate_quiz" --> retrieve`},
		{name: "Quiz Edge", contains: `retrieve -- "generate_quiz" --> create_quiz`},
		{name: "Evaluate Edge", contains: `planner -- "evaluate_quiz" --> evaluate_quiz`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, out, tt.contains)
		})
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	path := runtime.Path(domain.IntentGenerateQuiz)
	out := graph.GenerateMermaid(runtime.Nodes(), runtime.Edges(), &graph.Overlay{
		Visited: append(path, runtime.NodePlanner),
	})

	assert.Contains(t, out, "classDef visited")
	assert.Equal(t, 1, strings.Count(out, "class planner visited;"))
	assert.Contains(t, out, "class retrieve visited;")
	assert.Contains(t, out, "class create_quiz visited;")
	assert.NotContains(t, out, "class rag_answer visited;")
}
