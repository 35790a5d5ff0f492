package httpjson_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/httpjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    map[string]any
		wantErr string
	}{
		{name: "object", status: 200, body: `{"answer":"ok"}`, want: map[string]any{"answer": "ok"}},
		{name: "array", status: 200, body: `["a","b"]`, want: map[string]any{"items": []any{"a", "b"}}},
		{name: "error body", status: 200, body: `{"error":"index missing"}`, wantErr: "index missing"},
		{name: "null error is ignored", status: 200, body: `{"error":null,"x":1}`, want: map[string]any{"error": nil, "x": float64(1)}},
		{name: "status", status: 502, body: `{"detail":"upstream down"}`, wantErr: "HTTP 502: upstream down"},
		{name: "status without body", status: 500, body: ``, wantErr: "HTTP 500"},
		{name: "scalar", status: 200, body: `"text"`, wantErr: "expected a JSON object"},
		{name: "garbage", status: 200, body: `{`, wantErr: "decode reply"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received := make(chan map[string]any, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var got map[string]any
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				received <- got
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out, err := httpjson.Post(context.Background(), srv.Client(), srv.URL, map[string]any{"q": "x"})
			assert.Equal(t, map[string]any{"q": "x"}, <-received)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestPost_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer srv.Close()

	_, err := httpjson.Post(context.Background(), srv.Client(), srv.URL, nil)
	var se *httpjson.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTeapot, se.Status)
}
