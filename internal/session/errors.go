package session

import (
	"errors"
	"fmt"

	"u2b/internal/player"
)

// Error kinds reported by the controller. Callers match them with errors.Is.
var (
	ErrEmptyInput        = errors.New("nothing to play")
	ErrResolutionFailed  = errors.New("could not resolve a stream")
	ErrTimeout           = errors.New("timed out resolving a stream")
	ErrPlayerUnavailable = errors.New("media player unavailable")
	ErrOutOfRange        = errors.New("volume must be between 1 and 100")
	ErrProcessUnkillable = errors.New("player process could not be stopped and may still be running")
	ErrSuperseded        = errors.New("cancelled by a later play or stop")

	// ErrTerminationTimeout is logged, not returned, when a player needed a forced kill.
	ErrTerminationTimeout = player.ErrTerminationTimeout
)

// PlayError describes a failed controller operation.
type PlayError struct {
	Op    string // "play", "resolve", "start", "stop" or "volume"
	Input string
	Err   error
}

func (e *PlayError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Input, e.Err)
}

func (e *PlayError) Unwrap() error { return e.Err }
