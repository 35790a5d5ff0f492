// Package httpjson posts JSON to the collaborator services and decodes their
// replies into generic maps.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBody bounds how much of a reply is read.
const maxBody = 8 << 20

// ServiceError is an error reported by the remote service, either as a
// non-2xx status or as an {"error": ...} body.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return e.Message
}

// Post sends payload to url and decodes the JSON reply. A top-level JSON
// array is returned under the "items" key.
func Post(ctx context.Context, client *http.Client, url string, payload any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServiceError{Status: resp.StatusCode, Message: errorMessage(raw, resp.Status)}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	switch v := decoded.(type) {
	case map[string]any:
		if msg, ok := v["error"]; ok && msg != nil && msg != "" {
			return nil, &ServiceError{Message: fmt.Sprint(msg)}
		}
		return v, nil
	case []any:
		return map[string]any{"items": v}, nil
	default:
		return nil, errors.New("decode reply: expected a JSON object or array")
	}
}

func errorMessage(raw []byte, fallback string) string {
	var body struct {
		Error  any `json:"error"`
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != nil {
			return fmt.Sprint(body.Error)
		}
		if body.Detail != nil {
			return fmt.Sprint(body.Detail)
		}
	}
	return fallback
}
