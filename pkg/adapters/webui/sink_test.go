package webui_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/webui"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
	status int
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != webui.ProgressPath || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var e domain.ProgressEvent
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec.mu.Lock()
	rec.events = append(rec.events, e)
	status := rec.status
	rec.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
	}
}

func (rec *recorder) received(t *testing.T, sessionID string) []domain.ProgressEvent {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []domain.ProgressEvent
	for _, e := range rec.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

func TestSink_Contract(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	ports.RunProgressSinkContract(t, webui.New(srv.URL+"/"), rec.received)
}

func TestSink_PayloadShape(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received <- body
	}))
	defer srv.Close()

	ev := domain.NewProgressEvent("s1", domain.StepRetrieveDone, "Found 2 documents", time.Now(),
		domain.WithTool("rag_search"), domain.WithMeta(map[string]any{"count": 2}))
	require.NoError(t, webui.New(srv.URL).Deliver(context.Background(), ev))
	body := <-received

	for _, key := range []string{"event_id", "session_id", "step", "tool", "message", "level", "ts", "meta"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "info", body["level"])
}

func TestSink_Failures(t *testing.T) {
	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	ev := domain.NewProgressEvent("s1", domain.StepStartRun, "", time.Now())
	assert.ErrorContains(t, webui.New(srv.URL).Deliver(context.Background(), ev), "unexpected status")
	assert.ErrorIs(t, webui.New("  ").Deliver(context.Background(), ev), webui.ErrNotConfigured)
}

func TestSink_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := webui.New(srv.URL).Deliver(ctx, domain.NewProgressEvent("s1", domain.StepStartRun, "", time.Now()))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
