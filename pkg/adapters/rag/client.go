// Package rag retrieves study material from the retrieval service.
package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/httpjson"
	"github.com/mitchellh/mapstructure"
)

const (
	SearchPath     = "/search"
	DefaultTopK    = 5
	DefaultTimeout = 60 * time.Second
)

// ErrNotConfigured is returned when no service URL is set.
var ErrNotConfigured = errors.New("rag service not configured")

// documentKeys are the reply fields that may hold the hits, in lookup order.
var documentKeys = []string{"results", "documents", "chunks", "items"}

type searchRequest struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	UseHyDE bool   `json:"use_hyde"`
}

type hit struct {
	Content     string `mapstructure:"content"`
	Text        string `mapstructure:"text"`
	PageContent string `mapstructure:"page_content"`
	Document    string `mapstructure:"document"`
}

func (h hit) body() string {
	for _, s := range []string{h.Content, h.Text, h.PageContent, h.Document} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Client implements ports.Retriever against the retrieval service.
type Client struct {
	baseURL string
	topK    int
	useHyDE bool
	http    *http.Client
}

type Option func(*Client)

// WithTopK sets the number of hits requested.
func WithTopK(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.topK = n
		}
	}
}

// WithHyDE enables hypothetical document expansion on the service.
func WithHyDE(enabled bool) Option {
	return func(c *Client) {
		c.useHyDE = enabled
	}
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		topK:    DefaultTopK,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetrieveDocuments returns the text of the hits for query.
func (c *Client) RetrieveDocuments(ctx context.Context, query string) ([]string, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	reply, err := httpjson.Post(ctx, c.http, c.baseURL+SearchPath, searchRequest{
		Query:   query,
		TopK:    c.topK,
		UseHyDE: c.useHyDE,
	})
	if err != nil {
		return nil, fmt.Errorf("rag search: %w", err)
	}
	return extractDocuments(reply)
}

func extractDocuments(reply map[string]any) ([]string, error) {
	for _, key := range documentKeys {
		raw, ok := reply[key]
		if !ok || raw == nil {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("rag search: field %q is %T, not a list", key, raw)
		}

		docs := make([]string, 0, len(items))
		for i, item := range items {
			switch v := item.(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					docs = append(docs, s)
				}
			case map[string]any:
				var h hit
				if err := mapstructure.WeakDecode(v, &h); err != nil {
					return nil, fmt.Errorf("rag search: decode %s[%d]: %w", key, i, err)
				}
				if s := h.body(); s != "" {
					docs = append(docs, s)
				}
			}
		}
		return docs, nil
	}
	return []string{}, nil
}
