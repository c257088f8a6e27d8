package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"u2b/internal/media"
	"u2b/internal/resolver"
	"u2b/internal/ui"
)

const maxTitleWidth = 70

var (
	flagPick  bool
	flagLimit int
	flagJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "List YouTube search results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  searchRun,
}

func init() {
	searchCmd.Flags().BoolVarP(&flagPick, "pick", "p", false, "Pick a result with fzf and play it")
	searchCmd.Flags().IntVarP(&flagLimit, "limit", "n", 0, "Maximum number of results (default: max_results from config)")
	searchCmd.Flags().BoolVarP(&flagJSON, "json", "j", false, "Output results as JSON")
}

func searchRun(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx, stop := interruptContext(cmd.Context())
	defer stop()

	res, err := resolver.New(cfg, logger)
	if err != nil {
		return err
	}
	if !res.Available() {
		return fmt.Errorf("%s resolver is not available (run 'u2b doctor'): %w", res.Name(), resolver.ErrUnavailable)
	}

	limit := cfg.MaxResults
	if flagLimit > 0 {
		limit = flagLimit
	}

	logger.Debug("searching", zap.String("query", query), zap.Int("limit", limit))
	results, err := search(ctx, res, query, limit)
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	console := ui.NewConsole(os.Stdout, cfg.Color)
	if !flagPick {
		printResults(console, results)
		return nil
	}

	rows := make([]ui.Row, len(results))
	for i, r := range results {
		rows[i] = ui.Row{
			Title:  truncateTitle(r.Title),
			Detail: fmt.Sprintf("[%s]  %s", media.FormatDuration(r.DurationSeconds), r.Uploader),
		}
	}
	idx, ok, err := pick(ctx, "Play", fmt.Sprintf("%d results for %q", len(results), query), rows)
	if !ok {
		return err
	}

	store := openHistory()
	if store != nil {
		defer store.Close()
	}
	ctrl, err := newController(store)
	if err != nil {
		return err
	}
	return playAndWait(ctx, ctrl, console, results[idx].URL)
}

// pick shows rows in fzf. ok is false when nothing was chosen; err is nil if the user backed out.
func pick(ctx context.Context, prompt, header string, rows []ui.Row) (idx int, ok bool, err error) {
	p, err := ui.NewPicker()
	if err != nil {
		return -1, false, err
	}
	p.Header = header
	idx, err = p.Pick(ctx, prompt, rows)
	if errors.Is(err, ui.ErrCancelled) || errors.Is(err, context.Canceled) {
		return -1, false, nil
	}
	if err != nil {
		return -1, false, err
	}
	return idx, true, nil
}

func search(ctx context.Context, res resolver.Resolver, query string, limit int) ([]media.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ResolveTimeout.Duration)
	defer cancel()

	results, err := res.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %q: %w", query, resolver.ErrNotFound)
	}
	return results, nil
}

func printResults(console *ui.Console, results []media.SearchResult) {
	console.Infof("Search results:")
	for i, r := range results {
		console.Printf("%2d. %s", i+1, truncateTitle(r.Title))
		console.Printf("    %s", console.Faint(fmt.Sprintf("Duration: %s | Uploader: %s | %s",
			media.FormatDuration(r.DurationSeconds), orUnknown(r.Uploader), r.URL)))
	}
}

// truncateTitle shortens titles longer than maxTitleWidth runes with an ellipsis.
func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= maxTitleWidth {
		return title
	}
	return string(runes[:maxTitleWidth-3]) + "..."
}
