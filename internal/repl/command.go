// Package repl implements the interactive u2b prompt.
package repl

import (
	"errors"
	"strconv"
	"strings"
)

// Action identifies what a prompt line asks for.
type Action int

const (
	ActionNone Action = iota
	ActionPlay
	ActionSetVolume
	ActionShowVolume
	ActionStop
	ActionStatus
	ActionHelp
	ActionHistory
	ActionReplay
	ActionQuit
	ActionInvalid
)

var (
	// ErrVolumeUsage is reported for a volume argument that is not a number.
	ErrVolumeUsage = errors.New("usage: volume <1-100>")
	// ErrReplayUsage is reported for a replay argument that is not a number.
	ErrReplayUsage = errors.New("usage: replay <number from history>")
)

// Command is a parsed prompt line.
type Command struct {
	Action Action
	Input  string // search phrase or URL for ActionPlay
	Volume int    // requested level for ActionSetVolume
	Index  int    // 1-based history position for ActionReplay
	Err    error  // parse error for ActionInvalid
}

// Parse turns a prompt line into a Command. Keywords are matched
// case-insensitively and only as the whole line (or "volume <n>"), so a
// search such as "stop making sense" still plays.
func Parse(line string) Command {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Action: ActionNone}
	}

	fields := strings.Fields(line)
	keyword := strings.ToLower(fields[0])

	if len(fields) == 1 {
		switch keyword {
		case "quit", "exit", "q":
			return Command{Action: ActionQuit}
		case "stop":
			return Command{Action: ActionStop}
		case "status", "now":
			return Command{Action: ActionStatus}
		case "help", "?":
			return Command{Action: ActionHelp}
		case "volume", "vol":
			return Command{Action: ActionShowVolume}
		case "history", "hist":
			return Command{Action: ActionHistory}
		}
	}

	if (keyword == "volume" || keyword == "vol") && len(fields) == 2 {
		n, err := strconv.Atoi(strings.TrimSuffix(fields[1], "%"))
		if err != nil {
			return Command{Action: ActionInvalid, Err: ErrVolumeUsage}
		}
		return Command{Action: ActionSetVolume, Volume: n}
	}

	if keyword == "replay" && len(fields) == 2 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{Action: ActionInvalid, Err: ErrReplayUsage}
		}
		return Command{Action: ActionReplay, Index: n}
	}

	return Command{Action: ActionPlay, Input: line}
}

const helpText = `Commands:
  <search terms>      search YouTube and play the first result
  <youtube url>       play a video's audio directly
  volume <1-100>      set the volume (alias: vol)
  volume              show the current volume
  stop                stop playback
  status              show what is playing
  history             list recently played tracks
  replay <n>          play entry n from the history list
  help                show this help
  quit, exit          stop playback and leave`
