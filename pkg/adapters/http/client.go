package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// Client calls a running agent service over its HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for baseURL. A nil hc uses http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Ask sends a message and waits for the answer.
func (c *Client) Ask(ctx context.Context, message, sessionID string) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodPost, "/v1/message", MessageRequest{Message: message, SessionID: sessionID}, &resp)
	return resp, err
}

// ListSessions returns the summaries of every live session.
func (c *Client) ListSessions(ctx context.Context) ([]domain.SessionInfo, error) {
	var sessions []domain.SessionInfo
	err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &sessions)
	return sessions, err
}

// GetEvents returns the retained events of a session.
func (c *Client) GetEvents(ctx context.Context, sessionID string) ([]domain.ProgressEvent, error) {
	var events []domain.ProgressEvent
	err := c.do(ctx, http.MethodGet, sessionPath(sessionID, "/events"), nil, &events)
	return events, err
}

// RemoveSession deletes a session.
func (c *Client) RemoveSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sessionID, ""), nil, nil)
}

// CancelSession cancels the running execution of a session.
func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodPost, sessionPath(sessionID, "/cancel"), nil, nil)
}

// ClearSessionHistory empties the event log of a session.
func (c *Client) ClearSessionHistory(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sessionID, "/events"), nil, nil)
}

func sessionPath(sessionID, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(sessionID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, apiErr.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
