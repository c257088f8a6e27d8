package player

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// execProcess is a player subprocess with a reaper goroutine.
type execProcess struct {
	name   string
	cmd    *exec.Cmd
	done   chan struct{}
	logger *zap.Logger
}

// startProcess starts name with args detached from the terminal.
// cleanup runs once the process has exited, or immediately if it never started.
func startProcess(name string, args []string, cleanup func(), logger *zap.Logger) (*execProcess, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.Command(name, args...)
	// Stdin/Stdout/Stderr stay nil (os.DevNull) so the player never competes with the prompt.

	if err := cmd.Start(); err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}

	p := &execProcess{
		name:   name,
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: logger.With(zap.Int("pid", cmd.Process.Pid)),
	}
	p.logger.Debug("started", zap.Strings("args", args))

	go func() {
		// Players exit non-zero when stopped by a signal; the status carries no information.
		_ = cmd.Wait()
		p.logger.Debug("exited", zap.Stringer("state", cmd.ProcessState))
		if cleanup != nil {
			cleanup()
		}
		close(p.done)
	}()

	return p, nil
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) SetVolume(int) error {
	if p.exited() {
		return ErrProcessExited
	}
	return ErrLiveVolumeUnsupported
}

func (p *execProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Terminate sends SIGTERM, waits up to timeout, then escalates to SIGKILL.
func (p *execProcess) Terminate(timeout time.Duration) error {
	if p.exited() {
		return nil
	}

	// Signal fails on platforms without SIGTERM; fall through to Kill.
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err == nil {
		select {
		case <-p.done:
			return nil
		case <-time.After(timeout):
		}
	}

	p.logger.Warn("no exit after SIGTERM, killing", zap.Duration("timeout", timeout))
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("%w: %s (pid %d): %v", ErrUnkillable, p.name, p.Pid(), err)
	}

	select {
	case <-p.done:
		return ErrTerminationTimeout
	case <-time.After(timeout):
		return fmt.Errorf("%w: %s (pid %d) still running after kill", ErrUnkillable, p.name, p.Pid())
	}
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
