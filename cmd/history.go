package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"u2b/internal/config"
	"u2b/internal/history"
	"u2b/internal/media"
	"u2b/internal/ui"
)

var (
	historyPick   bool
	historyClear  bool
	historyLimit  int
	historyRemove int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently played tracks",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().BoolVarP(&historyPick, "pick", "p", false, "Pick a track with fzf and play it again")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete the play history")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries")
	historyCmd.Flags().IntVar(&historyRemove, "remove", 0, "Delete entry <n> as numbered in the listing")
	historyCmd.MarkFlagsMutuallyExclusive("pick", "clear", "remove")
}

func historyRun(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	path, err := config.HistoryPath()
	if err != nil {
		return err
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	console := ui.NewConsole(os.Stdout, cfg.Color)
	if historyClear {
		if err := store.Clear(ctx); err != nil {
			return err
		}
		console.Successf("History cleared")
		return nil
	}
	if historyRemove != 0 {
		e, err := removeEntry(ctx, store, historyRemove)
		if err != nil {
			return err
		}
		console.Successf("Removed %s", e.Title)
		return nil
	}

	entries, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		console.Infof("No tracks played yet")
		return nil
	}

	items := history.FormatForDisplay(entries)
	if !historyPick {
		for i, item := range items {
			console.Printf("%2d. %s", i+1, item)
			console.Printf("    %s", console.Faint(fmt.Sprintf("%s | %s", entries[i].PlayedAt.Format("2006-01-02 15:04"), entries[i].URL)))
		}
		return nil
	}

	rows := make([]ui.Row, len(entries))
	for i, e := range entries {
		rows[i] = ui.Row{
			Title:  truncateTitle(e.Title),
			Detail: fmt.Sprintf("[%s]  %s  played %s", media.FormatDuration(e.DurationSeconds), e.Uploader, e.PlayedAt.Format("Jan 2")),
		}
	}
	idx, ok, err := pick(ctx, "Replay", "Recently played", rows)
	if !ok {
		return err
	}

	ctrl, err := newController(store)
	if err != nil {
		return err
	}
	return playAndWait(ctx, ctrl, console, entries[idx].URL)
}

// removeEntry deletes the n-th most recent entry, counting from 1.
func removeEntry(ctx context.Context, store *history.Store, n int) (history.Entry, error) {
	if n < 1 {
		return history.Entry{}, fmt.Errorf("--remove %d: entries are numbered from 1", n)
	}
	entries, err := store.Recent(ctx, n)
	if err != nil {
		return history.Entry{}, err
	}
	if n > len(entries) {
		return history.Entry{}, fmt.Errorf("--remove %d: only %d entries in history", n, len(entries))
	}
	e := entries[n-1]
	if err := store.Remove(ctx, e.ID); err != nil {
		return history.Entry{}, err
	}
	return e, nil
}
