/*
Package ports defines the ports (interfaces) of the agent service.

These interfaces decouple the orchestration core from the language model,
retrieval, exam and notification backends it talks to.

# Key Interfaces

  - IntentClassifier: Labels a question with a routing Intent.
  - Retriever: Fetches documents relevant to a query.
  - TextGenerator: Drafts prose from a prompt.
  - QuizService: Generates and grades quizzes.
  - ProgressSink: Receives progress events on a best-effort basis.

Agent is the single driving port: the surface exposed to HTTP, MCP and the CLI.
*/
package ports
