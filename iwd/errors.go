package iwd

import "errors"

var (
	// ErrNotAvailable means the daemon did not answer the liveness check.
	ErrNotAvailable = errors.New("iwd not available")
	// ErrNotFound means a referenced object path is absent from the cache.
	ErrNotFound = errors.New("not found")
	// ErrNotKnown means the operation needs a connected, known network.
	ErrNotKnown = errors.New("not a known network")
	// ErrPromptCanceled is returned by a SecretPrompt when the user aborts.
	ErrPromptCanceled = errors.New("prompt canceled")
)
