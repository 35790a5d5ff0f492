package ports

import (
	"context"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// Agent is the driving port used by the HTTP, MCP and CLI surfaces.
type Agent interface {
	// Run answers question in the given session. Busy sessions yield
	// domain.BusyMessage without error.
	Run(ctx context.Context, question, sessionID string) (string, error)
	CreateSession(sessionID string) domain.SessionInfo
	RemoveSession(sessionID string) error
	CancelSession(sessionID string) error
	ListSessions() []domain.SessionInfo
	GetEvents(sessionID string) ([]domain.ProgressEvent, error)
	ClearSessionHistory(sessionID string) error
}
