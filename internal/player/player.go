// Package player launches external media players as background processes.
// All player invocations use exec.Command with explicit argument slices;
// stream URLs never pass through a shell.
package player

//go:generate mockgen -destination=mocks/player.go -package=mocks u2b/internal/player Player,Process

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"u2b/internal/media"
)

var (
	// ErrLiveVolumeUnsupported is returned by Process.SetVolume when the player
	// has no control channel; callers restart playback instead.
	ErrLiveVolumeUnsupported = errors.New("player cannot change volume while playing")

	// ErrTerminationTimeout reports that a process ignored the termination
	// signal and had to be killed. The process is gone when this is returned.
	ErrTerminationTimeout = errors.New("process did not exit gracefully and was killed")

	// ErrUnkillable reports that a process survived a forced kill.
	ErrUnkillable = errors.New("process could not be killed")

	// ErrProcessExited is returned by Process.SetVolume once the player has exited.
	ErrProcessExited = errors.New("player process has exited")
)

// Player is the interface for media player implementations.
type Player interface {
	// Start launches the player for a stream at volume (1-100) and returns immediately.
	Start(stream *media.StreamDescriptor, volume int) (Process, error)

	// Name returns the player name.
	Name() string

	// Available checks if the player binary exists in PATH.
	Available() bool
}

// Process is a running player.
type Process interface {
	// SetVolume changes the output level of the live process.
	SetVolume(volume int) error

	// Terminate stops the process, waiting up to timeout before killing it.
	// It returns nil if the process had already exited.
	Terminate(timeout time.Duration) error

	// Done is closed once the process has exited.
	Done() <-chan struct{}

	// Pid returns the OS process ID.
	Pid() int
}

// New creates a player by name. logger may be nil.
func New(name string, logger *zap.Logger) Player {
	switch strings.ToLower(name) {
	case "mpv":
		return &MPV{Logger: logger}
	case "vlc":
		return &VLC{Logger: logger}
	default:
		return &FFplay{Logger: logger} // Default to ffplay
	}
}

func named(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named("player").With(zap.String("player", name))
}
