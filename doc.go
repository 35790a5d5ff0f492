/*
Package agentservice is the session orchestration core of the Lifelong
Learning study assistant.

A question sent to a session runs through a fixed orchestration graph:
the planner classifies the intent and routes to a direct answer, a
retrieval-grounded answer, quiz generation or quiz evaluation. Every step
emits a progress event that is kept in the session's bounded event log and
forwarded, best-effort, to the configured sinks (live SSE subscribers, the
web UI, Redis).

# Concurrency

Each session runs at most one execution at a time; a second question while
one is in flight is answered immediately with a busy message. Executions
across all sessions share a global pool of permits. Idle sessions are
evicted by a background sweeper once their TTL expires.

# Usage

Collaborators are injected explicitly, so the core can run against fakes or
against the HTTP and LLM adapters built by NewFromConfig.

	svc, err := agentservice.New(
		agentservice.WithClassifier(classifier),
		agentservice.WithRetriever(retriever),
		agentservice.WithGenerator(generator),
		agentservice.WithQuizService(quizzes),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer svc.Close(context.Background())

	svc.Start(ctx) // idle session sweeper
	answer, err := svc.Run(ctx, "What is spaced repetition?", "session-1")
*/
package agentservice
