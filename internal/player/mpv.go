package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"u2b/internal/media"
)

const ipcTimeout = 2 * time.Second

// MPV implements the Player interface for mpv.
// Each process gets a JSON IPC socket in a private temp directory,
// which is used to change the volume without restarting.
type MPV struct {
	Logger *zap.Logger
}

func (m *MPV) Name() string { return "mpv" }

func (m *MPV) Available() bool {
	_, err := exec.LookPath("mpv")
	return err == nil
}

// Start launches mpv in audio-only mode.
func (m *MPV) Start(stream *media.StreamDescriptor, volume int) (Process, error) {
	// Randomized socket directory (prevents symlink attacks)
	socketDir, err := os.MkdirTemp("", "u2b-mpv-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	socketPath := filepath.Join(socketDir, "socket")

	proc, err := startProcess("mpv", mpvArgs(stream, volume, socketPath), func() {
		os.RemoveAll(socketDir)
	}, named(m.Logger, "mpv"))
	if err != nil {
		return nil, err
	}

	return &mpvProcess{execProcess: proc, socketPath: socketPath}, nil
}

func mpvArgs(stream *media.StreamDescriptor, volume int, socketPath string) []string {
	args := []string{
		stream.StreamURL,
		"--no-video",
		"--really-quiet",
		"--no-terminal",
		"--volume=" + strconv.Itoa(clampVolume(volume)),
		"--input-ipc-server=" + socketPath,
	}
	if stream.Title != "" {
		args = append(args, "--force-media-title="+stream.Title)
	}
	return args
}

type mpvProcess struct {
	*execProcess
	socketPath string
}

type ipcRequest struct {
	Command   []interface{} `json:"command"`
	RequestID int           `json:"request_id"`
}

type ipcReply struct {
	RequestID int    `json:"request_id"`
	Error     string `json:"error"`
	Event     string `json:"event"`
}

// SetVolume sets mpv's volume property over the IPC socket.
func (p *mpvProcess) SetVolume(volume int) error {
	if p.exited() {
		return ErrProcessExited
	}
	if err := sendIPC(p.socketPath, []interface{}{"set_property", "volume", clampVolume(volume)}); err != nil {
		p.logger.Debug("ipc volume change failed", zap.Int("volume", volume), zap.Error(err))
		return err
	}
	p.logger.Debug("volume changed over ipc", zap.Int("volume", volume))
	return nil
}

// sendIPC sends one command and waits for its reply, skipping unrelated events.
func sendIPC(socketPath string, command []interface{}) error {
	conn, err := net.DialTimeout("unix", socketPath, ipcTimeout)
	if err != nil {
		return fmt.Errorf("connecting to mpv ipc: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(ipcTimeout))

	const requestID = 1
	data, err := json.Marshal(ipcRequest{Command: command, RequestID: requestID})
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing mpv ipc: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var reply ipcReply
		if err := json.Unmarshal(scanner.Bytes(), &reply); err != nil {
			continue
		}
		if reply.Event != "" || reply.RequestID != requestID {
			continue
		}
		if reply.Error != "success" {
			return fmt.Errorf("mpv ipc: %s", reply.Error)
		}
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading mpv ipc: %w", err)
	}
	return fmt.Errorf("mpv ipc closed without reply")
}
