package domain

import "errors"

// ErrSessionNotFound is returned when no session exists for a user ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrModelCall is returned when the language model cannot produce a reply.
// The session is left untouched so the same message can be retried.
var ErrModelCall = errors.New("model call failed")

// ErrConfigurationMissing is returned when a required setting such as the model credential is absent.
var ErrConfigurationMissing = errors.New("configuration missing")

// ErrInvalidInput is returned for messages rejected before they reach the engine.
var ErrInvalidInput = errors.New("invalid input")
