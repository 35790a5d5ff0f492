package domain

import "time"

// Quiz is the result of generating an exam from study material.
type Quiz struct {
	ID      string
	Content string
}

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID           string    `json:"id"`
	IsRunning    bool      `json:"is_running"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	AgeSeconds   float64   `json:"age_seconds"`
	EventCount   int       `json:"event_count"`
}
