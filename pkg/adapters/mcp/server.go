package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/logging"
	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/sanitize"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const sessionsURI = "agent://sessions"

// AskArgs are the arguments of the ask tool.
type AskArgs struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResult is the structured reply of the ask tool.
type AskResult struct {
	Answer    string `json:"answer" jsonschema_description:"The agent answer"`
	SessionID string `json:"session_id" jsonschema_description:"Session that produced the answer"`
}

// Server wraps an Agent and exposes it as an MCP Server.
type Server struct {
	agent     ports.Agent
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance. A nil logger discards output.
func NewServer(agent ports.Agent, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		agent:     agent,
		mcpServer: server.NewMCPServer("agent-service", strings.TrimSpace(version)),
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: ask
	askTool := mcp.NewTool("ask",
		mcp.WithDescription("Ask the study assistant a question. Reuse session_id to keep quiz context between questions."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question or quiz answers")),
		mcp.WithString("session_id", mcp.Description("Session to run in (a new one is created if omitted)")),
		mcp.WithOutputSchema[AskResult](),
	)
	s.mcpServer.AddTool(askTool, mcp.NewStructuredToolHandler(s.handleAsk))

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the live sessions."),
	), s.handleListSessions)

	// TOOL: get_events
	s.mcpServer.AddTool(mcp.NewTool("get_events",
		mcp.WithDescription("Get the recent progress events of a session, oldest first."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleGetEvents)

	// TOOL: cancel_session
	s.mcpServer.AddTool(mcp.NewTool("cancel_session",
		mcp.WithDescription("Cancel the running execution of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleSessionCommand("cancelled", s.agent.CancelSession))

	// TOOL: clear_history
	s.mcpServer.AddTool(mcp.NewTool("clear_history",
		mcp.WithDescription("Forget the events and state of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), s.handleSessionCommand("cleared", s.agent.ClearSessionHistory))
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest, args AskArgs) (AskResult, error) {
	question, err := sanitize.Input(args.Question, 0)
	if err != nil {
		return AskResult{}, fmt.Errorf("invalid question: %w", err)
	}
	sessionID := args.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := s.agent.Run(ctx, question, sessionID)
	if err != nil {
		s.logger.Error("MCP ask failed", "session_id", sessionID, "err", err)
		return AskResult{}, fmt.Errorf("ask failed: %w", err)
	}
	return AskResult{Answer: answer, SessionID: sessionID}, nil
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.agent.ListSessions())
}

func (s *Server) handleGetEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	events, err := s.agent.GetEvents(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(events)
}

func (s *Server) handleSessionCommand(done string, command func(string) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := command(sessionID); err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				s.logger.Error("MCP session command failed", "session_id", sessionID, "err", err)
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("session %s %s", sessionID, done)), nil
	}
}

func (s *Server) registerResources() {
	// EXPOSE: agent://sessions
	s.mcpServer.AddResource(mcp.NewResource(sessionsURI, "Live Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.agent.ListSessions())
		if err != nil {
			return nil, fmt.Errorf("failed to encode sessions: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      sessionsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
