// Package webui delivers progress events to the web UI backend.
package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// ProgressPath is the endpoint receiving events, relative to the base URL.
const ProgressPath = "/api/agent/progress"

// ErrNotConfigured is returned when no base URL is set.
var ErrNotConfigured = errors.New("web ui url not configured")

// Sink posts every event as JSON to {baseURL}/api/agent/progress.
type Sink struct {
	endpoint string
	client   *http.Client
}

type Option func(*Sink)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sink) {
		if c != nil {
			s.client = c
		}
	}
}

// New creates a Sink for baseURL. An empty baseURL yields a Sink whose
// deliveries fail with ErrNotConfigured.
func New(baseURL string, opts ...Option) *Sink {
	s := &Sink{client: http.DefaultClient}
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		s.endpoint = base + ProgressPath
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver implements ports.ProgressSink. Callers bound it with ctx.
func (s *Sink) Deliver(ctx context.Context, event domain.ProgressEvent) error {
	if s.endpoint == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode progress event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build progress request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post progress: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post progress: unexpected status %s", resp.Status)
	}
	return nil
}
