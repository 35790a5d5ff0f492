package domain

// DefaultEventLogCapacity is the number of progress events retained per session.
const DefaultEventLogCapacity = 200

// Keys of the session state map.
const (
	KeyQuestion     = "question"
	KeyIntent       = "intent"
	KeyDocuments    = "documents"
	KeyQuizContent  = "quizContent"
	KeyQuizID       = "quizID"
	KeyUserSolution = "userSolution"
	KeyFinalAnswer  = "finalAnswer"
)

// Fixed answers returned through the terminal-answer channel.
const (
	// BusyMessage is returned when a session already has an execution in flight.
	BusyMessage = "The agent is busy with a previous request in this session. Please wait for it to finish and try again."

	// NoAnswerMessage is returned when an execution ended without writing an answer.
	NoAnswerMessage = "No answer was produced for this request."

	// CancelledMessage is returned when an execution was cancelled before answering.
	CancelledMessage = "The request was cancelled before an answer was produced."

	// NoQuizMessage is the evaluate_quiz answer when no quiz exists in the session.
	NoQuizMessage = "There is no quiz to evaluate yet. Ask me to create a quiz on a topic first, then send your answers."

	// NoMaterialMessage is the create_quiz answer when retrieval found nothing.
	NoMaterialMessage = "I could not find any study material on this topic, so no quiz was created. Try rephrasing the topic."
)
