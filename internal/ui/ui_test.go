package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConsolePlain(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false)

	c.Successf("Now playing: %s", "Song")
	c.Errorf("no results for %q", "x")
	c.Warnf("player may still be running")
	c.Infof("Volume: %d", 50)
	c.Printf("plain")

	want := strings.Join([]string{
		"Now playing: Song",
		`Error: no results for "x"`,
		"Warning: player may still be running",
		"Volume: 50",
		"plain",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("output =\n%s\nwant\n%s", got, want)
	}
	if got := c.Prompt("u2b> "); got != "u2b> " {
		t.Errorf("Prompt() = %q", got)
	}
	if got := c.Faint("3:32"); got != "3:32" {
		t.Errorf("Faint() = %q", got)
	}
}

func TestConsoleNonTerminalHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true)
	c.Successf("ok")
	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("output to a buffer contains escape codes: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "ok") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestConsoleSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	c := NewConsole(&first, false)
	c.SetOutput(&second)
	c.Printf("moved")
	if first.Len() != 0 || second.String() != "moved\n" {
		t.Errorf("first = %q, second = %q", first.String(), second.String())
	}
}

func TestPlainReader(t *testing.T) {
	var out bytes.Buffer
	r := NewPlainReader(strings.NewReader("hello world\nvolume 30\n"), &out, "u2b> ")

	for _, want := range []string{"hello world", "volume 30"} {
		line, err := r.ReadLine()
		if err != nil {
			t.Fatalf("ReadLine() error: %v", err)
		}
		if line != want {
			t.Errorf("ReadLine() = %q, want %q", line, want)
		}
	}
	if _, err := r.ReadLine(); !errors.Is(err, io.EOF) {
		t.Errorf("ReadLine() at end error = %v, want io.EOF", err)
	}
	if got := strings.Count(out.String(), "u2b> "); got != 3 {
		t.Errorf("prompt printed %d times, want 3", got)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestNewLineReaderNonTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "in")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString("status\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	out, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	r, err := NewLineReader(f, out, "> ")
	if err != nil {
		t.Fatalf("NewLineReader() error: %v", err)
	}
	if _, ok := r.(*plainReader); !ok {
		t.Fatalf("NewLineReader() = %T, want *plainReader for regular files", r)
	}
	line, err := r.ReadLine()
	if err != nil || line != "status" {
		t.Errorf("ReadLine() = %q, %v", line, err)
	}
}

// fakeFzf puts an fzf script on PATH that answers with script's output.
func fakeFzf(t *testing.T, script string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fzf")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

// nulRecord runs filter over the NUL-separated fzf input and emits the result NUL-terminated.
func nulRecord(filter string) string {
	return `tr '\000' '\n' | ` + filter + ` | tr '\n' '\000'`
}

var pickRows = []Row{
	{Title: "alpha", Detail: "3:00"},
	{Title: "beta\nwith newline", Detail: "1:02:03"},
	{Title: "gamma", Detail: "LIVE"},
}

func TestPickerPick(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		want    int
		wantErr error
	}{
		{name: "second row", script: nulRecord("sed -n 2p"), want: 1},
		{name: "last row", script: nulRecord("tail -n 1"), want: 2},
		{name: "escape", script: `exit 130`, want: -1, wantErr: ErrCancelled},
		{name: "no match", script: `cat >/dev/null; exit 1`, want: -1, wantErr: ErrCancelled},
		{name: "empty output", script: `cat >/dev/null`, want: -1, wantErr: ErrCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeFzf(t, tt.script)
			p, err := NewPicker()
			if err != nil {
				t.Fatalf("NewPicker() error: %v", err)
			}
			got, err := p.Pick(context.Background(), "pick", pickRows)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Pick() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Pick() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Pick() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPickerArgs(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	fakeFzf(t, `printf '%s\n' "$@" > "`+argsFile+`"; `+nulRecord("head -n 1"))

	p, err := NewPicker()
	if err != nil {
		t.Fatal(err)
	}
	p.Header = "Enter plays, Esc quits"
	if _, err := p.Pick(context.Background(), "Play", pickRows); err != nil {
		t.Fatalf("Pick() error: %v", err)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	args := string(data)
	for _, want := range []string{"--read0", "--print0", "Play > ", "Enter plays, Esc quits"} {
		if !strings.Contains(args, want) {
			t.Errorf("fzf args missing %q:\n%s", want, args)
		}
	}
}

func TestPickerContextCancel(t *testing.T) {
	fakeFzf(t, `exec sleep 30`)
	p, err := NewPicker()
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := p.Pick(ctx, "pick", pickRows); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Pick() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestNewPickerWithoutFzf(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := NewPicker(); !errors.Is(err, ErrNoPicker) {
		t.Fatalf("NewPicker() error = %v, want ErrNoPicker", err)
	}
}

func TestPickNoRows(t *testing.T) {
	p := &Picker{path: "fzf"}
	if _, err := p.Pick(context.Background(), "pick", nil); err == nil {
		t.Fatal("Pick(nil) returned no error")
	}
}
