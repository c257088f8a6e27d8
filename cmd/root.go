// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"u2b/internal/config"
	"u2b/internal/history"
	"u2b/internal/logging"
	"u2b/internal/player"
	"u2b/internal/repl"
	"u2b/internal/resolver"
	"u2b/internal/session"
	"u2b/internal/ui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagPlayer   string
	flagResolver string
	flagVolume   int
	flagDebug    bool
	flagNoColor  bool
	flagNoHist   bool
)

var (
	// cfg holds the loaded configuration (merged: defaults < config file < flags).
	cfg *config.Config
	// logger is a no-op unless --debug is set.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "u2b [query|url]",
	Short: "Play YouTube audio from the terminal",
	Long: `u2b is a command line YouTube audio player.
Type a search or paste a YouTube URL at the prompt and the audio starts playing
in the background through ffplay, mpv or vlc.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
	RunE:              promptRun,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player: ffplay | mpv | vlc")
	rootCmd.PersistentFlags().StringVarP(&flagResolver, "resolver", "r", "", "Stream resolver: yt-dlp | native")
	rootCmd.PersistentFlags().IntVarP(&flagVolume, "volume", "v", 0, "Initial volume (1-100)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagNoHist, "no-history", false, "Do not record played tracks")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagResolver != "" {
		cfg.Resolver = flagResolver
	}
	if cmd.Flags().Changed("volume") {
		cfg.Volume = flagVolume
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagNoColor || os.Getenv("NO_COLOR") != "" {
		cfg.Color = false
	}
	if flagNoHist {
		cfg.History = false
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger = logging.Must(cfg.Debug)
	logger.Debug("config loaded",
		zap.String("player", cfg.Player),
		zap.String("resolver", cfg.Resolver),
		zap.Int("volume", cfg.Volume))
	return nil
}

// openHistory returns nil when history is disabled or cannot be opened.
func openHistory() *history.Store {
	if !cfg.History {
		return nil
	}
	path, err := config.HistoryPath()
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logger.Warn("history unavailable", zap.String("path", path), zap.Error(err))
		return nil
	}
	return store
}

// newController wires the configured resolver and player into a session.
// store may be nil.
func newController(store *history.Store) (*session.Controller, error) {
	res, err := resolver.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if !res.Available() {
		return nil, fmt.Errorf("%s resolver is not available (run 'u2b doctor'): %w", res.Name(), resolver.ErrUnavailable)
	}

	opts := session.OptionsFromConfig(cfg)
	if store != nil {
		opts.History = store
	}
	ctrl, err := session.New(res, player.New(cfg.Player, logger), opts, logger)
	if err != nil {
		if errors.Is(err, session.ErrPlayerUnavailable) {
			return nil, fmt.Errorf("%w (install it or pick another with --player)", err)
		}
		return nil, err
	}
	return ctrl, nil
}

// interruptContext is cancelled on Ctrl-C or SIGTERM.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// promptRun is the default command: an interactive prompt.
func promptRun(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	store := openHistory()
	if store != nil {
		defer store.Close()
	}

	ctrl, err := newController(store)
	if err != nil {
		return err
	}

	console := ui.NewConsole(os.Stdout, cfg.Color)
	in, err := ui.NewLineReader(os.Stdin, os.Stdout, console.Prompt("u2b> "))
	if err != nil {
		return err
	}
	defer in.Close()
	console.SetOutput(in)

	console.Infof("Welcome to u2b %s (player: %s, volume: %d%%)", Version, ctrl.PlayerName(), ctrl.Volume())

	s := repl.NewSession(ctrl, console, in, logger)
	if store != nil {
		s.WithHistory(store)
	}
	if len(args) > 0 {
		if s.Exec(ctx, strings.Join(args, " ")) {
			_ = ctrl.Stop()
			return nil
		}
	}
	return s.Run(ctx)
}
