package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/prompts"
)

// Tool names reported on progress events.
const (
	ToolPlanner  = "planner"
	ToolSearch   = "rag_search"
	ToolLLM      = "llm"
	ToolGenerate = "generate_exam"
	ToolGrade    = "grade_exam"
)

func (e *Engine) plan(ctx context.Context, scope Scope) (NodeID, error) {
	question := stringValue(scope, domain.KeyQuestion)
	scope.Notify(domain.StepPlannerStart, "Working out what kind of request this is", domain.WithTool(ToolPlanner))

	intent, err := e.classifier.ClassifyIntent(ctx, question)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NodeEnd, ctxErr
	}
	if err == nil && !known(intent) {
		err = fmt.Errorf("%w: %q", domain.ErrUnknownIntent, intent)
	}
	if err != nil {
		e.logger.Warn("intent classification failed, using general", "session_id", scope.SessionID(), "err", err)
		intent = domain.IntentGeneral
	}

	scope.Set(domain.KeyIntent, intent)
	scope.Notify(domain.StepIntentDetermined, fmt.Sprintf("Request type: %s", intent),
		domain.WithTool(ToolPlanner),
		domain.WithMeta(map[string]any{"intent": string(intent)}),
	)
	return RouteFromPlanner(intent), nil
}

func (e *Engine) retrieve(ctx context.Context, scope Scope) (NodeID, error) {
	question := stringValue(scope, domain.KeyQuestion)
	scope.Notify(domain.StepRetrieveStart, "Searching the course documents", domain.WithTool(ToolSearch))

	docs, err := e.retriever.RetrieveDocuments(ctx, question)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NodeEnd, ctxErr
	}
	meta := map[string]any{}
	if err != nil {
		e.logger.Warn("retrieval failed, continuing without documents", "session_id", scope.SessionID(), "err", err)
		meta["error"] = err.Error()
		docs = nil
	}
	if docs == nil {
		docs = []string{}
	}
	meta["count"] = len(docs)

	scope.Set(domain.KeyDocuments, docs)
	scope.Notify(domain.StepRetrieveDone, fmt.Sprintf("Found %d documents", len(docs)),
		domain.WithTool(ToolSearch),
		domain.WithMeta(meta),
	)
	return RouteFromRetrieve(intentValue(scope)), nil
}

func (e *Engine) directAnswer(ctx context.Context, scope Scope) (NodeID, error) {
	scope.Notify(domain.StepDirectAnswerStart, "Drafting an answer", domain.WithTool(ToolLLM))

	prompt, err := e.prompts.Render(prompts.DirectAnswer, map[string]any{
		"question": stringValue(scope, domain.KeyQuestion),
	})
	if err != nil {
		return NodeEnd, err
	}

	answer, err := e.generator.GenerateText(ctx, prompt, e.temperature)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NodeEnd, ctxErr
	}
	if err != nil {
		answer = fmt.Sprintf("Sorry, I could not generate an answer: %v", err)
	}

	scope.Set(domain.KeyFinalAnswer, answer)
	scope.Notify(domain.StepDirectAnswerDone, doneMessage(err, "Answer ready"),
		domain.WithTool(ToolLLM),
		domain.WithLevel(levelFor(err)),
		domain.WithMeta(resultMeta(answer, err)),
	)
	return NodeEnd, nil
}

func (e *Engine) ragAnswer(ctx context.Context, scope Scope) (NodeID, error) {
	docs := documentsValue(scope)
	scope.Notify(domain.StepRAGAnswerStart, "Answering from the course documents",
		domain.WithTool(ToolLLM),
		domain.WithMeta(map[string]any{"documents": len(docs)}),
	)

	prompt, err := e.prompts.Render(prompts.RAGAnswer, map[string]any{
		"question":  stringValue(scope, domain.KeyQuestion),
		"documents": docs,
	})
	if err != nil {
		return NodeEnd, err
	}

	answer, err := e.generator.GenerateText(ctx, prompt, e.temperature)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NodeEnd, ctxErr
	}
	if err != nil {
		answer = fmt.Sprintf("Sorry, I could not answer from the course documents: %v", err)
	}

	scope.Set(domain.KeyFinalAnswer, answer)
	scope.Notify(domain.StepRAGAnswerDone, doneMessage(err, "Answer ready"),
		domain.WithTool(ToolLLM),
		domain.WithLevel(levelFor(err)),
		domain.WithMeta(resultMeta(answer, err)),
	)
	return NodeEnd, nil
}

func (e *Engine) createQuiz(ctx context.Context, scope Scope) (NodeID, error) {
	docs := documentsValue(scope)
	scope.Notify(domain.StepQuizStart, "Generating a quiz",
		domain.WithTool(ToolGenerate),
		domain.WithMeta(map[string]any{"documents": len(docs)}),
	)

	if len(docs) == 0 {
		scope.Set(domain.KeyFinalAnswer, domain.NoMaterialMessage)
		scope.Notify(domain.StepQuizDone, "No material to build a quiz from",
			domain.WithTool(ToolGenerate),
			domain.WithLevel(domain.LevelWarn),
			domain.WithMeta(map[string]any{"reason": "no_documents"}),
		)
		return NodeEnd, nil
	}

	quiz, err := e.quizzes.GenerateQuiz(ctx, strings.Join(docs, "\n\n"))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NodeEnd, ctxErr
	}
	if err != nil {
		answer := fmt.Sprintf("Sorry, the quiz could not be generated: %v", err)
		scope.Set(domain.KeyFinalAnswer, answer)
		scope.Notify(domain.StepQuizDone, doneMessage(err, ""),
			domain.WithTool(ToolGenerate),
			domain.WithLevel(domain.LevelError),
			domain.WithMeta(resultMeta(answer, err)),
		)
		return NodeEnd, nil
	}

	scope.Set(domain.KeyQuizID, quiz.ID)
	scope.Set(domain.KeyQuizContent, quiz.Content)
	scope.Set(domain.KeyFinalAnswer, quiz.Content)

	meta := resultMeta(quiz.Content, nil)
	meta["quiz_id"] = quiz.ID
	scope.Notify(domain.StepQuizDone, "Quiz ready",
		domain.WithTool(ToolGenerate),
		domain.WithMeta(meta),
	)
	return NodeEnd, nil
}

func (e *Engine) evaluateQuiz(ctx context.Context, scope Scope) (NodeID, error) {
	scope.Notify(domain.StepEvaluateStart, "Checking your answers", domain.WithTool(ToolGrade))

	if stringValue(scope, domain.KeyQuizContent) == "" {
		scope.Set(domain.KeyFinalAnswer, domain.NoQuizMessage)
		scope.Notify(domain.StepEvaluateDone, "No quiz to evaluate",
			domain.WithTool(ToolGrade),
			domain.WithLevel(domain.LevelWarn),
			domain.WithMeta(map[string]any{"reason": "no_quiz"}),
		)
		return NodeEnd, nil
	}

	solution := stringValue(scope, domain.KeyQuestion)
	quizID := stringValue(scope, domain.KeyQuizID)
	scope.Set(domain.KeyUserSolution, solution)

	feedback, err := e.quizzes.GradeQuiz(ctx, quizID, solution)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NodeEnd, ctxErr
	}
	if err != nil {
		feedback = fmt.Sprintf("Sorry, your answers could not be graded: %v", err)
	}

	meta := resultMeta(feedback, err)
	meta["quiz_id"] = quizID
	scope.Set(domain.KeyFinalAnswer, feedback)
	scope.Notify(domain.StepEvaluateDone, doneMessage(err, "Feedback ready"),
		domain.WithTool(ToolGrade),
		domain.WithLevel(levelFor(err)),
		domain.WithMeta(meta),
	)
	return NodeEnd, nil
}

func known(intent domain.Intent) bool {
	for _, i := range domain.Intents {
		if i == intent {
			return true
		}
	}
	return false
}

func stringValue(scope Scope, key string) string {
	v, _ := scope.Get(key)
	s, _ := v.(string)
	return s
}

func intentValue(scope Scope) domain.Intent {
	v, _ := scope.Get(domain.KeyIntent)
	switch i := v.(type) {
	case domain.Intent:
		return i
	case string:
		return domain.Intent(i)
	}
	return domain.IntentGeneral
}

func documentsValue(scope Scope) []string {
	v, _ := scope.Get(domain.KeyDocuments)
	docs, _ := v.([]string)
	return docs
}

func levelFor(err error) domain.Level {
	if err != nil {
		return domain.LevelError
	}
	return domain.LevelInfo
}

func doneMessage(err error, ok string) string {
	if err != nil {
		return "External service failed: " + err.Error()
	}
	return ok
}

func resultMeta(text string, err error) map[string]any {
	meta := map[string]any{"length": len(text)}
	if err != nil {
		meta["error"] = err.Error()
	}
	return meta
}
