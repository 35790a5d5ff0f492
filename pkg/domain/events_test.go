package domain_test

import (
	"testing"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestProgressEvent_Clone(t *testing.T) {
	e := domain.NewProgressEvent("s", "retrieve_done", "done", testTime,
		domain.WithMeta(map[string]any{"count": 2}),
	)

	c := e.Clone()
	c.Meta["count"] = 99

	assert.Equal(t, 2, e.Meta["count"])
	assert.Equal(t, e.EventID, c.EventID)
	assert.Equal(t, testTime, c.Timestamp)
}
