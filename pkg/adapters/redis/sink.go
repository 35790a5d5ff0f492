// Package redis fans progress events out through Redis: every event is
// published on a channel and appended to a capped per-session stream.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	DefaultChannel      = "agent:progress"
	DefaultStreamPrefix = "agent:events:"
	DefaultMaxLen       = 200

	eventField = "event"
)

// Sink implements ports.ProgressSink using Redis.
type Sink struct {
	client       *backend.Client
	channel      string
	streamPrefix string
	maxLen       int64
}

type Option func(*Sink)

// WithChannel sets the pub/sub channel events are published on.
func WithChannel(channel string) Option {
	return func(s *Sink) {
		if channel != "" {
			s.channel = channel
		}
	}
}

// WithStreamPrefix sets the key prefix of the per-session streams.
func WithStreamPrefix(prefix string) Option {
	return func(s *Sink) {
		if prefix != "" {
			s.streamPrefix = prefix
		}
	}
}

// WithMaxLen caps each session stream, approximately.
func WithMaxLen(n int64) Option {
	return func(s *Sink) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// New creates a new Redis sink with its own client.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sink {
	sink := &Sink{
		client:       client,
		channel:      DefaultChannel,
		streamPrefix: DefaultStreamPrefix,
		maxLen:       DefaultMaxLen,
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink
}

// Channel returns the pub/sub channel.
func (s *Sink) Channel() string {
	return s.channel
}

func (s *Sink) streamKey(sessionID string) string {
	return s.streamPrefix + sessionID
}

// Ping checks connectivity.
func (s *Sink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Deliver publishes the event and appends it to the session stream in one round trip.
func (s *Sink) Deliver(ctx context.Context, event domain.ProgressEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = s.client.Pipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Publish(ctx, s.channel, payload)
		pipe.XAdd(ctx, &backend.XAddArgs{
			Stream: s.streamKey(event.SessionID),
			MaxLen: s.maxLen,
			Approx: true,
			Values: map[string]any{eventField: payload},
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis deliver: %w", err)
	}
	return nil
}

// History reads the stored events of a session, oldest first.
func (s *Sink) History(ctx context.Context, sessionID string) ([]domain.ProgressEvent, error) {
	msgs, err := s.client.XRange(ctx, s.streamKey(sessionID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("redis history: %w", err)
	}

	events := make([]domain.ProgressEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[eventField].(string)
		if !ok {
			continue
		}
		var event domain.ProgressEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event %s: %w", msg.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Forget deletes the stream of a session.
func (s *Sink) Forget(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.streamKey(sessionID)).Err()
}

// Close closes the underlying client.
func (s *Sink) Close() error {
	return s.client.Close()
}
