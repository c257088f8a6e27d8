package player

import (
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"u2b/internal/media"
)

// VLC implements the Player interface for VLC media player, run headless.
// VLC's rc interface is not used, so volume changes need a restart.
type VLC struct {
	Logger *zap.Logger
}

func (v *VLC) Name() string { return "vlc" }

func (v *VLC) Available() bool {
	_, err := exec.LookPath("vlc")
	return err == nil
}

func (v *VLC) Start(stream *media.StreamDescriptor, volume int) (Process, error) {
	return startProcess("vlc", vlcArgs(stream, volume), nil, named(v.Logger, "vlc"))
}

// vlcArgs maps volume 1-100 onto VLC's gain, where 1.0 is unity.
func vlcArgs(stream *media.StreamDescriptor, volume int) []string {
	return []string{
		"-I", "dummy",
		"--no-video",
		"--play-and-exit",
		"--quiet",
		fmt.Sprintf("--gain=%.2f", float64(clampVolume(volume))/100),
		"--meta-title", stream.Title,
		stream.StreamURL,
	}
}
