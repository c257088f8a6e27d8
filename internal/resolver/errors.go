package resolver

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why resolution failed.
var (
	ErrNotFound    = errors.New("no matching video found")
	ErrNetwork     = errors.New("network failure")
	ErrNoStream    = errors.New("no playable audio stream")
	ErrBlocked     = errors.New("video is private, age-restricted or region-blocked")
	ErrInvalidURL  = errors.New("not a YouTube video URL")
	ErrUnavailable = errors.New("resolver backend not installed")
)

// Error wraps a resolution failure with the backend and input that produced it.
type Error struct {
	Backend string
	Input   string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: resolving %q: %v", e.Backend, e.Input, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(backend, input string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Backend: backend, Input: input, Err: err}
}
