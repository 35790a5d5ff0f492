package ports

import (
	"context"
	"testing"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunProgressSinkContract runs a suite of tests to verify that a ProgressSink
// implementation adheres to the interface contract. received must return the
// events the backing consumer observed for a session, in arrival order.
func RunProgressSinkContract(t *testing.T, sink ProgressSink, received func(t *testing.T, sessionID string) []domain.ProgressEvent) {
	ctx := context.Background()
	sessionID := "contract-sink-" + time.Now().Format("20060102150405.000")
	now := time.Now()

	t.Run("Delivers In Order", func(t *testing.T) {
		steps := []string{domain.StepStartRun, domain.StepPlannerStart, domain.StepIntentDetermined}
		for _, step := range steps {
			ev := domain.NewProgressEvent(sessionID, step, "contract", now,
				domain.WithTool("agent"),
				domain.WithMeta(map[string]any{"step": step}),
			)
			require.NoError(t, sink.Deliver(ctx, ev), "Deliver should not return error")
		}

		got := received(t, sessionID)
		require.Len(t, got, len(steps))
		for i, step := range steps {
			assert.Equal(t, step, got[i].Step)
			assert.Equal(t, sessionID, got[i].SessionID)
			assert.Equal(t, "agent", got[i].Tool)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		done := make(chan error, 1)
		go func() {
			done <- sink.Deliver(cctx, domain.NewProgressEvent(sessionID+"-cancelled", domain.StepCancelled, "late", now))
		}()

		select {
		case err := <-done:
			assert.Error(t, err, "Deliver on a cancelled context should fail")
		case <-time.After(2 * time.Second):
			t.Fatal("Deliver ignored a cancelled context")
		}
	})
}
