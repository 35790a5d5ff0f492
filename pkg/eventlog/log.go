// Package eventlog provides a bounded, insertion-ordered buffer of progress events.
package eventlog

import (
	"sync"

	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
)

// Log keeps the most recent events of a session. When full, Append
// overwrites the oldest entry. Events are copied on the way in and out, so
// callers never share a Meta map with the log. It is safe for concurrent use.
type Log struct {
	mu    sync.RWMutex
	buf   []domain.ProgressEvent
	head  int // index of the oldest entry
	count int
}

// New creates a Log holding at most capacity events.
// A non-positive capacity falls back to domain.DefaultEventLogCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = domain.DefaultEventLogCapacity
	}
	return &Log{buf: make([]domain.ProgressEvent, capacity)}
}

// Append adds an event, dropping the oldest one if the log is full.
func (l *Log) Append(event domain.ProgressEvent) {
	event = event.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count < len(l.buf) {
		l.buf[(l.head+l.count)%len(l.buf)] = event
		l.count++
		return
	}
	l.buf[l.head] = event
	l.head = (l.head + 1) % len(l.buf)
}

// Snapshot returns a copy of the retained events, oldest first.
func (l *Log) Snapshot() []domain.ProgressEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ProgressEvent, l.count)
	for i := range l.count {
		out[i] = l.buf[(l.head+i)%len(l.buf)].Clone()
	}
	return out
}

// Clear drops every retained event.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	clear(l.buf)
	l.head = 0
	l.count = 0
}

// Len reports how many events are retained.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Cap reports the maximum number of retained events.
func (l *Log) Cap() int {
	return len(l.buf)
}
