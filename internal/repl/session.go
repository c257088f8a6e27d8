package repl

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"u2b/internal/history"
	"u2b/internal/media"
	"u2b/internal/resolver"
	"u2b/internal/session"
	"u2b/internal/ui"
)

// Controller is the part of session.Controller the prompt drives.
type Controller interface {
	Play(ctx context.Context, input string) (media.PlaybackInfo, error)
	SetVolume(level int) error
	Stop() error
	Volume() int
	State() session.State
	Current() (media.PlaybackInfo, bool)
}

// History lists previously played tracks.
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

const historyListSize = 10

// Session runs the read-dispatch loop of the interactive prompt.
type Session struct {
	ctrl    Controller
	console *ui.Console
	input   ui.LineReader
	logger  *zap.Logger

	history History
	listed  []history.Entry // last list shown by the history command
}

func NewSession(ctrl Controller, console *ui.Console, input ui.LineReader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{ctrl: ctrl, console: console, input: input, logger: logger.Named("repl")}
}

// WithHistory enables the history and replay commands.
func (s *Session) WithHistory(h History) *Session {
	s.history = h
	return s
}

type readResult struct {
	line string
	err  error
}

// Run reads commands until quit, end of input or ctx cancellation. Playback
// is stopped before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.console.Infof("Type a search or a YouTube URL to play. Type 'help' for commands.")

	lines := make(chan readResult)
	next := make(chan struct{}, 1)
	go func() {
		for range next {
			line, err := s.input.ReadLine()
			select {
			case lines <- readResult{line, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer close(next)

	var runErr error
loop:
	for {
		next <- struct{}{}
		select {
		case <-ctx.Done():
			s.console.Printf("")
			break loop
		case r := <-lines:
			if errors.Is(r.err, io.EOF) {
				break loop
			}
			if r.err != nil {
				runErr = r.err
				break loop
			}
			if s.dispatch(ctx, Parse(r.line)) {
				break loop
			}
		}
	}

	s.stop()
	s.console.Infof("Goodbye!")
	return runErr
}

// Exec runs a single prompt line and reports whether it asked to quit.
func (s *Session) Exec(ctx context.Context, line string) bool {
	return s.dispatch(ctx, Parse(line))
}

// dispatch executes cmd and reports whether the prompt should exit.
func (s *Session) dispatch(ctx context.Context, cmd Command) bool {
	s.logger.Debug("command", zap.Int("action", int(cmd.Action)), zap.String("input", cmd.Input))

	switch cmd.Action {
	case ActionNone:
	case ActionQuit:
		return true
	case ActionHelp:
		s.console.Printf("%s", helpText)
	case ActionInvalid:
		s.console.Errorf("%v", cmd.Err)
	case ActionShowVolume:
		s.console.Infof("Volume: %d%%", s.ctrl.Volume())
	case ActionSetVolume:
		if err := s.ctrl.SetVolume(cmd.Volume); err != nil {
			s.report(err)
			return false
		}
		s.console.Successf("Volume set to %d%%", cmd.Volume)
	case ActionStop:
		if s.ctrl.State() == session.Idle {
			s.console.Infof("Nothing is playing")
			return false
		}
		if s.stop() {
			s.console.Successf("Playback stopped")
		}
	case ActionStatus:
		s.status()
	case ActionPlay:
		s.play(ctx, cmd.Input)
	case ActionHistory:
		s.showHistory(ctx)
	case ActionReplay:
		s.replay(ctx, cmd.Index)
	}
	return false
}

func (s *Session) play(ctx context.Context, input string) {
	if resolver.Classify(input) == resolver.KindQuery {
		s.console.Infof("Searching: %s", input)
	} else {
		s.console.Infof("Loading: %s", input)
	}

	info, err := s.ctrl.Play(ctx, input)
	if err != nil {
		s.report(err)
		return
	}
	s.console.Successf("Now playing: %s", describe(info))
	s.console.Infof("Volume: %d%%", s.ctrl.Volume())
}

func (s *Session) status() {
	info, ok := s.ctrl.Current()
	if !ok {
		s.console.Infof("Nothing is playing (volume %d%%)", s.ctrl.Volume())
		return
	}
	s.console.Infof("Playing: %s", describe(info))
	s.console.Infof("Volume: %d%%", s.ctrl.Volume())
}

func (s *Session) showHistory(ctx context.Context) {
	if s.history == nil {
		s.console.Infof("History is disabled")
		return
	}
	entries, err := s.history.Recent(ctx, historyListSize)
	if err != nil {
		s.console.Errorf("%v", err)
		return
	}
	s.listed = entries
	if len(entries) == 0 {
		s.console.Infof("No tracks played yet")
		return
	}
	s.console.Infof("Recently played:")
	for i, line := range history.FormatForDisplay(entries) {
		s.console.Printf("%2d. %s", i+1, line)
	}
}

func (s *Session) replay(ctx context.Context, n int) {
	if s.history == nil {
		s.console.Infof("History is disabled")
		return
	}
	if s.listed == nil {
		entries, err := s.history.Recent(ctx, historyListSize)
		if err != nil {
			s.console.Errorf("%v", err)
			return
		}
		s.listed = entries
	}
	if n < 1 || n > len(s.listed) {
		s.console.Errorf("no history entry %d (type 'history' to list them)", n)
		return
	}
	s.play(ctx, s.listed[n-1].URL)
}

// stop halts playback and reports whether it ended cleanly.
func (s *Session) stop() bool {
	if err := s.ctrl.Stop(); err != nil {
		s.report(err)
		return false
	}
	return true
}

func (s *Session) report(err error) {
	if errors.Is(err, session.ErrProcessUnkillable) {
		s.console.Warnf("%v", err)
		return
	}
	s.console.Errorf("%v", err)
}

func describe(info media.PlaybackInfo) string {
	var b strings.Builder
	b.WriteString(info.Title)
	b.WriteString(" [")
	b.WriteString(media.FormatDuration(info.DurationSeconds))
	b.WriteString("]")
	if info.Uploader != "" {
		b.WriteString(" by ")
		b.WriteString(info.Uploader)
	}
	return b.String()
}
