package player

import (
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"u2b/internal/media"
)

// FFplay implements the Player interface for ffplay from FFmpeg.
// ffplay has no control channel, so volume changes need a restart.
type FFplay struct {
	Logger *zap.Logger
}

func (f *FFplay) Name() string { return "ffplay" }

func (f *FFplay) Available() bool {
	_, err := exec.LookPath("ffplay")
	return err == nil
}

func (f *FFplay) Start(stream *media.StreamDescriptor, volume int) (Process, error) {
	return startProcess("ffplay", ffplayArgs(stream, volume), nil, named(f.Logger, "ffplay"))
}

func ffplayArgs(stream *media.StreamDescriptor, volume int) []string {
	return []string{
		"-nodisp",   // no video window
		"-autoexit", // exit when the stream ends
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-sync", "ext",
		"-volume", strconv.Itoa(clampVolume(volume)),
		"-i", stream.StreamURL,
	}
}
