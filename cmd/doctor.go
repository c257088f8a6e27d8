package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"u2b/internal/config"
	"u2b/internal/player"
	"u2b/internal/resolver"
)

var errMissingDependencies = errors.New("missing dependencies")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that a player and a resolver are installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctor(cmd.OutOrStdout())
	},
}

type check struct {
	name string
	ok   bool
	note string
}

func doctor(w io.Writer) error {
	var checks []check

	for _, name := range []string{"ffplay", "mpv", "vlc"} {
		p := player.New(name, logger)
		c := check{name: "player " + name, ok: p.Available()}
		if strings.EqualFold(name, cfg.Player) {
			c.note = "configured"
		}
		checks = append(checks, c)
	}

	res, err := resolver.New(cfg, logger)
	if err != nil {
		return err
	}
	checks = append(checks, check{name: "resolver " + res.Name(), ok: res.Available(), note: "configured"})
	if res.Name() != "yt-dlp" {
		_, err := exec.LookPath(cfg.YtdlpPath)
		checks = append(checks, check{name: "resolver yt-dlp", ok: err == nil, note: "optional"})
	}
	_, err = exec.LookPath("fzf")
	checks = append(checks, check{name: "fzf", ok: err == nil, note: "optional, for search --pick"})

	path, err := config.ConfigPath()
	if err != nil {
		path = err.Error()
	}

	failed := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
		}
		line := fmt.Sprintf("%s %s", mark, c.name)
		if c.note != "" {
			line += " (" + c.note + ")"
		}
		fmt.Fprintln(w, line)

		if !c.ok && c.note == "configured" {
			failed = true
		}
	}
	fmt.Fprintf(w, "config: %s\n", path)

	if failed {
		fmt.Fprintln(w, "Install the missing tools above, or choose others with --player / --resolver.")
		return errMissingDependencies
	}
	return nil
}
