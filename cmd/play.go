package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"u2b/internal/media"
	"u2b/internal/session"
	"u2b/internal/ui"
)

var playCmd = &cobra.Command{
	Use:   "play <query|url>",
	Short: "Play one track and exit when it ends",
	Args:  cobra.MinimumNArgs(1),
	RunE:  playRun,
}

func playRun(cmd *cobra.Command, args []string) error {
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
	return playAndWait(ctx, ctrl, ui.NewConsole(os.Stdout, cfg.Color), strings.Join(args, " "))
}

// playAndWait plays input and blocks until the track ends or ctx is cancelled.
func playAndWait(ctx context.Context, ctrl *session.Controller, console *ui.Console, input string) error {
	console.Infof("Loading: %s", input)
	info, err := ctrl.Play(ctx, input)
	if err != nil {
		return err
	}
	console.Successf("Now playing: %s", info.Title)
	console.Infof("Duration: %s | Uploader: %s | Volume: %d%%",
		media.FormatDuration(info.DurationSeconds), orUnknown(info.Uploader), ctrl.Volume())

	select {
	case <-ctrl.Done():
		console.Infof("Finished")
	case <-ctx.Done():
		console.Printf("")
		console.Warnf("Interrupted by user")
	}
	return ctrl.Stop()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
