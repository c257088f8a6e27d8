// Package session implements the playback session controller: it owns at most
// one running player process and maps play, volume and stop requests onto the
// lifecycle of that process.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"u2b/internal/config"
	"u2b/internal/media"
	"u2b/internal/player"
	"u2b/internal/resolver"
)

const (
	DefaultVolume         = 50
	DefaultResolveTimeout = 30 * time.Second
	DefaultStopTimeout    = 3 * time.Second
)

// State is the controller's playback state.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Recorder remembers tracks that started playing.
type Recorder interface {
	Record(ctx context.Context, desc *media.StreamDescriptor) error
}

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	Volume         int
	ResolveTimeout time.Duration
	StopTimeout    time.Duration
	History        Recorder // optional
}

// OptionsFromConfig derives controller options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Volume:         cfg.Volume,
		ResolveTimeout: cfg.ResolveTimeout.Duration,
		StopTimeout:    cfg.StopTimeout.Duration,
	}
}

// Controller is safe for concurrent use; all state changes happen under one lock.
// Requests take effect in the order they were issued: a Play whose resolution
// finishes after a later Play or Stop is dropped with ErrSuperseded.
type Controller struct {
	resolver resolver.Resolver
	player   player.Player
	logger   *zap.Logger

	resolveTimeout time.Duration
	stopTimeout    time.Duration
	history        Recorder

	mu      sync.Mutex
	gen     uint64 // bumped by every Play and Stop
	volume  int
	proc    player.Process
	current *media.StreamDescriptor
}

// New creates an idle controller. It fails with ErrPlayerUnavailable when the
// player binary cannot be found.
func New(r resolver.Resolver, p player.Player, opts Options, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !p.Available() {
		return nil, fmt.Errorf("%w: %s not found in PATH", ErrPlayerUnavailable, p.Name())
	}

	c := &Controller{
		resolver:       r,
		player:         p,
		logger:         logger.Named("session"),
		resolveTimeout: opts.ResolveTimeout,
		stopTimeout:    opts.StopTimeout,
		history:        opts.History,
		volume:         opts.Volume,
	}
	if c.resolveTimeout <= 0 {
		c.resolveTimeout = DefaultResolveTimeout
	}
	if c.stopTimeout <= 0 {
		c.stopTimeout = DefaultStopTimeout
	}
	if c.volume == 0 {
		c.volume = DefaultVolume
	}
	if !validVolume(c.volume) {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, c.volume)
	}
	return c, nil
}

// Play resolves input and replaces whatever is playing with it.
// On a resolution failure the current playback is left untouched.
func (c *Controller) Play(ctx context.Context, input string) (media.PlaybackInfo, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return media.PlaybackInfo{}, &PlayError{Op: "play", Err: ErrEmptyInput}
	}

	kind := resolver.Classify(input)
	c.logger.Debug("play", zap.String("input", input), zap.Stringer("kind", kind))
	if kind == resolver.KindForeignURL {
		return media.PlaybackInfo{}, &PlayError{Op: "resolve", Input: input,
			Err: fmt.Errorf("%w: %w", ErrResolutionFailed, resolver.ErrInvalidURL)}
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	// Resolution runs without the lock so Stop stays responsive.
	desc, err := c.resolve(ctx, input)
	if err != nil {
		return media.PlaybackInfo{}, &PlayError{Op: "resolve", Input: input, Err: err}
	}

	if err := c.replace(input, desc, gen); err != nil {
		return media.PlaybackInfo{}, err
	}
	c.record(ctx, desc)
	return desc.Info(), nil
}

// replace stops the active process and starts desc in its place, unless a
// newer Play or Stop was issued after gen was taken.
func (c *Controller) replace(input string, desc *media.StreamDescriptor, gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		c.logger.Debug("dropping stale resolution", zap.String("input", input), zap.String("id", desc.ID))
		return &PlayError{Op: "play", Input: input, Err: ErrSuperseded}
	}

	if err := c.stopLocked(); err != nil {
		return &PlayError{Op: "stop", Input: input, Err: err}
	}
	if err := c.launchLocked(desc); err != nil {
		return &PlayError{Op: "start", Input: input, Err: err}
	}
	return nil
}

// record failures never fail playback.
func (c *Controller) record(ctx context.Context, desc *media.StreamDescriptor) {
	if c.history == nil {
		return
	}
	if err := c.history.Record(ctx, desc); err != nil {
		c.logger.Warn("recording history failed", zap.String("id", desc.ID), zap.Error(err))
	}
}

func (c *Controller) resolve(ctx context.Context, input string) (*media.StreamDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	defer cancel()

	desc, err := c.resolver.Resolve(ctx, input)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, c.resolveTimeout, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	case desc == nil || desc.StreamURL == "":
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailed, resolver.ErrNoStream)
	}

	c.logger.Debug("resolved",
		zap.String("id", desc.ID),
		zap.String("title", desc.Title),
		zap.Int("duration", desc.DurationSeconds))
	return desc, nil
}

// launchLocked starts the player for desc. The caller must have stopped any previous process.
func (c *Controller) launchLocked(desc *media.StreamDescriptor) error {
	proc, err := c.player.Start(desc, c.volume)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPlayerUnavailable, c.player.Name(), err)
	}

	c.proc = proc
	c.current = desc
	c.logger.Debug("player started", zap.String("player", c.player.Name()), zap.Int("pid", proc.Pid()), zap.Int("volume", c.volume))

	go c.reap(proc, proc.Done())
	return nil
}

// reap returns the controller to Idle when a track ends on its own.
func (c *Controller) reap(proc player.Process, done <-chan struct{}) {
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == proc {
		c.logger.Debug("playback finished", zap.Int("pid", proc.Pid()))
		c.clearLocked()
	}
}

// SetVolume sets the volume for the current and future playback.
// A player without live volume control is restarted from the beginning of the track.
func (c *Controller) SetVolume(level int) error {
	if !validVolume(level) {
		return &PlayError{Op: "volume", Err: fmt.Errorf("%w: got %d", ErrOutOfRange, level)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = level
	if c.proc == nil || c.clearIfExitedLocked() {
		return nil
	}

	err := c.proc.SetVolume(level)
	if err == nil {
		return nil
	}
	// A track that ended during the attempt must not be restarted.
	if errors.Is(err, player.ErrProcessExited) {
		c.clearLocked()
		return nil
	}
	if c.clearIfExitedLocked() {
		return nil
	}
	if !errors.Is(err, player.ErrLiveVolumeUnsupported) {
		c.logger.Warn("live volume change failed, restarting playback", zap.Error(err))
	}

	desc := c.current
	if err := c.stopLocked(); err != nil {
		return &PlayError{Op: "volume", Err: err}
	}
	if err := c.launchLocked(desc); err != nil {
		return &PlayError{Op: "volume", Err: err}
	}
	return nil
}

// Stop terminates the active player and cancels any Play still resolving.
// Calling it while idle is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.stopLocked()
}

// clearIfExitedLocked drops a process that has exited but not been reaped yet.
func (c *Controller) clearIfExitedLocked() bool {
	select {
	case <-c.proc.Done():
		c.clearLocked()
		return true
	default:
		return false
	}
}

func (c *Controller) clearLocked() {
	c.proc = nil
	c.current = nil
}

func (c *Controller) stopLocked() error {
	if c.proc == nil {
		return nil
	}

	proc := c.proc
	c.clearLocked()

	err := proc.Terminate(c.stopTimeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTerminationTimeout):
		c.logger.Warn("player ignored termination, killed", zap.Int("pid", proc.Pid()), zap.Duration("timeout", c.stopTimeout))
		return nil
	default:
		c.logger.Error("player could not be stopped", zap.Int("pid", proc.Pid()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrProcessUnkillable, err)
	}
}

// Volume returns the current volume.
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// State reports whether a player process is active.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil {
		return Idle
	}
	return Playing
}

// Current returns the display metadata of the active playback.
func (c *Controller) Current() (media.PlaybackInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return media.PlaybackInfo{}, false
	}
	return c.current.Info(), true
}

// Done returns a channel closed when the active playback ends.
// While idle the returned channel is already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.proc.Done()
}

// PlayerName returns the name of the configured player.
func (c *Controller) PlayerName() string { return c.player.Name() }

func validVolume(v int) bool {
	return v >= config.MinVolume && v <= config.MaxVolume
}
