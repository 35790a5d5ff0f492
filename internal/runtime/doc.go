/*
Package runtime implements the orchestration graph.

The graph is fixed:

	planner ─┬─> direct_answer
	         ├─> evaluate_quiz
	         └─> retrieve ─┬─> rag_answer
	                       └─> create_quiz

The planner asks an IntentClassifier for an Intent and routing is a pure
function of that intent. Every step reports a start and a done progress
event through its Scope. Collaborator failures become answers; only
cancellation and programming errors surface from Engine.Run.
*/
package runtime
