package domain

import "errors"

// ErrSessionNotFound is returned when a session ID is not registered.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownIntent is returned when a classifier label maps to no intent.
var ErrUnknownIntent = errors.New("unknown intent")

// ErrRegistryClosed is returned by operations issued after the registry was closed.
var ErrRegistryClosed = errors.New("registry closed")
