package progress

import (
	"context"
	"errors"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
)

// Fanout delivers every event to each of its sinks in order.
type Fanout []ports.ProgressSink

// Deliver calls every sink, even after a failure, and joins their errors.
func (f Fanout) Deliver(ctx context.Context, event domain.ProgressEvent) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Deliver(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
