package rag_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/adapters/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, reply string, status int) (*httptest.Server, <-chan map[string]any) {
	t.Helper()
	requests := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != rag.SearchPath {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests <- body
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func TestRetrieveDocuments_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{name: "results objects", reply: `{"results":[{"content":"a","score":0.9},{"text":"b"},{"page_content":"c"}]}`, want: []string{"a", "b", "c"}},
		{name: "documents strings", reply: `{"documents":["a"," ","b"]}`, want: []string{"a", "b"}},
		{name: "chunks", reply: `{"chunks":[{"document":"d"}]}`, want: []string{"d"}},
		{name: "top level array", reply: `["x","y"]`, want: []string{"x", "y"}},
		{name: "no hits", reply: `{"results":[]}`, want: []string{}},
		{name: "unknown shape", reply: `{"answer":"x"}`, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serve(t, tt.reply, http.StatusOK)
			docs, err := rag.New(srv.URL).RetrieveDocuments(context.Background(), "q")
			require.NoError(t, err)
			assert.Equal(t, tt.want, docs)
		})
	}
}

func TestRetrieveDocuments_Request(t *testing.T) {
	srv, requests := serve(t, `{"results":[]}`, http.StatusOK)

	c := rag.New(srv.URL+"/", rag.WithTopK(3), rag.WithHyDE(true))
	_, err := c.RetrieveDocuments(context.Background(), "photosynthesis")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"query": "photosynthesis", "top_k": float64(3), "use_hyde": true}, <-requests)
}

func TestRetrieveDocuments_Errors(t *testing.T) {
	_, err := rag.New("").RetrieveDocuments(context.Background(), "q")
	assert.ErrorIs(t, err, rag.ErrNotConfigured)

	srv, _ := serve(t, `{"error":"index not built"}`, http.StatusOK)
	_, err = rag.New(srv.URL).RetrieveDocuments(context.Background(), "q")
	assert.ErrorContains(t, err, "index not built")

	srv, _ = serve(t, `{"detail":"boom"}`, http.StatusInternalServerError)
	_, err = rag.New(srv.URL).RetrieveDocuments(context.Background(), "q")
	assert.ErrorContains(t, err, "HTTP 500")

	srv, _ = serve(t, `{"results":"not a list"}`, http.StatusOK)
	_, err = rag.New(srv.URL).RetrieveDocuments(context.Background(), "q")
	assert.ErrorContains(t, err, "not a list")
}

func TestRetrieveDocuments_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := rag.New(srv.URL, rag.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := c.RetrieveDocuments(context.Background(), "q")
	assert.Error(t, err)
}
