package observability

import (
	"context"
	"log/slog"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// LoggingHooks logs executions and node transitions.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnExecutionStart: func(ctx context.Context, e *domain.ExecutionEvent) {
			logger.Info("execution_start", "session_id", e.SessionID)
		},
		OnExecutionEnd: func(ctx context.Context, e *domain.ExecutionEvent) {
			logger.Info("execution_end",
				"session_id", e.SessionID,
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("node_enter", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("node_leave", "session_id", e.SessionID, "node_id", e.NodeID)
		},
	}
}

// Chain combines hooks; each callback runs the non-nil callbacks of all
// inputs in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnExecutionStart = chain2(out.OnExecutionStart, h.OnExecutionStart)
		out.OnExecutionEnd = chain2(out.OnExecutionEnd, h.OnExecutionEnd)
		out.OnNodeEnter = chain2(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain2(out.OnNodeLeave, h.OnNodeLeave)
		out.OnProgress = chain2(out.OnProgress, h.OnProgress)
		out.OnBusy = chain2(out.OnBusy, h.OnBusy)
		out.OnEvict = chain2(out.OnEvict, h.OnEvict)
	}
	return out
}

func chain2[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, v T) {
		a(ctx, v)
		b(ctx, v)
	}
}
