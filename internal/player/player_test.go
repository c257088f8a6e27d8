package player

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"u2b/internal/media"
)

var testStream = &media.StreamDescriptor{
	Title:     "Lofi Beats Mix",
	StreamURL: "https://example/stream1",
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"mpv", "mpv"},
		{"vlc", "vlc"},
		{"ffplay", "ffplay"},
		{"", "ffplay"},
		{"winamp", "ffplay"},
		{"MPV", "mpv"},
	}

	for _, tt := range tests {
		if got := New(tt.name, zap.NewNop()).Name(); got != tt.want {
			t.Errorf("New(%q).Name() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFFplayArgs(t *testing.T) {
	args := ffplayArgs(testStream, 50)
	joined := strings.Join(args, " ")

	for _, want := range []string{"-nodisp", "-autoexit", "-volume 50", "-i https://example/stream1"} {
		if !strings.Contains(joined, want) {
			t.Errorf("ffplay args %q missing %q", joined, want)
		}
	}
	if args[len(args)-1] != testStream.StreamURL {
		t.Errorf("stream URL should be the last argument, got %q", args[len(args)-1])
	}
}

func TestMPVArgs(t *testing.T) {
	args := mpvArgs(testStream, 75, "/tmp/sock")

	if args[0] != testStream.StreamURL {
		t.Errorf("first arg = %q, want stream URL", args[0])
	}
	for _, want := range []string{"--no-video", "--volume=75", "--input-ipc-server=/tmp/sock", "--force-media-title=Lofi Beats Mix"} {
		found := false
		for _, a := range args {
			if a == want {
				found = true
			}
		}
		if !found {
			t.Errorf("mpv args %v missing %q", args, want)
		}
	}
}

func TestVLCArgs(t *testing.T) {
	args := vlcArgs(testStream, 25)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--gain=0.25") {
		t.Errorf("vlc args %q should map volume 25 to gain 0.25", joined)
	}
	if !strings.Contains(joined, "--play-and-exit") {
		t.Errorf("vlc args %q missing --play-and-exit", joined)
	}
}

func TestClampVolume(t *testing.T) {
	if clampVolume(-5) != 0 || clampVolume(150) != 100 || clampVolume(42) != 42 {
		t.Error("clampVolume does not clamp to 0-100")
	}
}

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX signals and sh")
	}
}

func waitDone(t *testing.T, p Process) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not report exit")
	}
}

func TestTerminateGraceful(t *testing.T) {
	requirePOSIX(t)

	cleaned := make(chan struct{})
	p, err := startProcess("sleep", []string{"30"}, func() { close(cleaned) }, zap.NewNop())
	if err != nil {
		t.Fatalf("startProcess() error: %v", err)
	}
	if p.Pid() <= 0 {
		t.Errorf("Pid() = %d", p.Pid())
	}

	if err := p.Terminate(2 * time.Second); err != nil {
		t.Fatalf("Terminate() error: %v", err)
	}
	waitDone(t, p)
	<-cleaned

	// Already exited: no-op.
	if err := p.Terminate(time.Second); err != nil {
		t.Errorf("second Terminate() error: %v", err)
	}
}

func TestTerminateEscalatesToKill(t *testing.T) {
	requirePOSIX(t)

	ready := filepath.Join(t.TempDir(), "ready")
	// An ignored SIGTERM survives exec, so sleep ignores it too.
	script := `trap "" TERM; touch "$0"; exec sleep 30`
	core, logs := observer.New(zapcore.WarnLevel)
	p, err := startProcess("sh", []string{"-c", script, ready}, nil, zap.New(core))
	if err != nil {
		t.Fatalf("startProcess() error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(ready); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("script never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	err = p.Terminate(200 * time.Millisecond)
	if !errors.Is(err, ErrTerminationTimeout) {
		t.Fatalf("Terminate() error = %v, want ErrTerminationTimeout", err)
	}
	waitDone(t, p)

	if got := logs.FilterMessage("no exit after SIGTERM, killing").Len(); got != 1 {
		t.Errorf("kill warning logged %d times, want 1", got)
	}
}

func TestExecProcessNoLiveVolume(t *testing.T) {
	requirePOSIX(t)

	p, err := startProcess("sleep", []string{"30"}, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Terminate(time.Second)

	if err := p.SetVolume(10); !errors.Is(err, ErrLiveVolumeUnsupported) {
		t.Errorf("SetVolume() error = %v, want ErrLiveVolumeUnsupported", err)
	}
}

func TestSetVolumeAfterExit(t *testing.T) {
	requirePOSIX(t)

	p, err := startProcess("true", nil, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)

	if err := p.SetVolume(10); !errors.Is(err, ErrProcessExited) {
		t.Errorf("execProcess.SetVolume() error = %v, want ErrProcessExited", err)
	}
	mpv := &mpvProcess{execProcess: p, socketPath: filepath.Join(t.TempDir(), "socket")}
	if err := mpv.SetVolume(10); !errors.Is(err, ErrProcessExited) {
		t.Errorf("mpvProcess.SetVolume() error = %v, want ErrProcessExited", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	cleaned := false
	_, err := startProcess(filepath.Join(t.TempDir(), "nope"), nil, func() { cleaned = true }, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !cleaned {
		t.Error("cleanup should run when start fails")
	}
}

// installFake puts an executable script named name first in PATH.
func installFake(t *testing.T, name, body string) {
	t.Helper()
	requirePOSIX(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestFFplayStart(t *testing.T) {
	installFake(t, "ffplay", "exec sleep 30")

	f := &FFplay{}
	if !f.Available() {
		t.Fatal("fake ffplay should be available")
	}

	p, err := f.Start(testStream, 50)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := p.Terminate(2 * time.Second); err != nil {
		t.Errorf("Terminate() error: %v", err)
	}
	waitDone(t, p)
}

func TestFFplayNaturalExit(t *testing.T) {
	installFake(t, "ffplay", "exit 0")

	p, err := (&FFplay{}).Start(testStream, 50)
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitDone(t, p)
}

func TestMPVSetVolume(t *testing.T) {
	requirePOSIX(t)

	dir, err := os.MkdirTemp("", "u2b-ipc-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	socketPath := filepath.Join(dir, "socket")

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	got := make(chan ipcRequest, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, err := bufio.NewReader(conn).ReadBytes('\n')
		if err != nil {
			return
		}
		var req ipcRequest
		json.Unmarshal(line, &req)
		got <- req
		// An unrelated event arrives before the reply.
		conn.Write([]byte(`{"event":"audio-reconfig"}` + "\n"))
		conn.Write([]byte(`{"data":null,"request_id":1,"error":"success"}` + "\n"))
	}()

	p, err := startProcess("sleep", []string{"30"}, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Terminate(time.Second)

	proc := &mpvProcess{execProcess: p, socketPath: socketPath}
	if err := proc.SetVolume(80); err != nil {
		t.Fatalf("SetVolume() error: %v", err)
	}

	req := <-got
	if len(req.Command) != 3 || req.Command[0] != "set_property" || req.Command[1] != "volume" || req.Command[2] != float64(80) {
		t.Errorf("unexpected ipc command: %v", req.Command)
	}
}

func TestMPVSetVolumeNoSocket(t *testing.T) {
	requirePOSIX(t)

	p, err := startProcess("sleep", []string{"30"}, nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer p.Terminate(time.Second)

	proc := &mpvProcess{execProcess: p, socketPath: filepath.Join(t.TempDir(), "missing")}
	if err := proc.SetVolume(80); err == nil {
		t.Error("expected error when the ipc socket is missing")
	}
}
