// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Volume bounds accepted by the player.
const (
	MinVolume = 1
	MaxVolume = 100
)

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds all application configuration.
type Config struct {
	Player         string   `toml:"player"`
	Resolver       string   `toml:"resolver"`
	YtdlpPath      string   `toml:"ytdlp_path"`
	YtdlpArgs      []string `toml:"ytdlp_args"` // extra flags passed to every yt-dlp call
	Volume         int      `toml:"volume"`
	MaxResults     int      `toml:"max_results"`
	ResolveTimeout Duration `toml:"resolve_timeout"`
	StopTimeout    Duration `toml:"stop_timeout"`
	Color          bool     `toml:"color"`
	History        bool     `toml:"history"`
	Debug          bool     `toml:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Player:         "ffplay",
		Resolver:       "yt-dlp",
		YtdlpPath:      "yt-dlp",
		Volume:         50,
		MaxResults:     10,
		ResolveTimeout: Duration{30 * time.Second},
		StopTimeout:    Duration{3 * time.Second},
		Color:          true,
		History:        true,
		Debug:          false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "u2b"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "u2b"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns the path to the play history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "u2b", "history.db"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	validPlayers := map[string]bool{
		"mpv": true, "ffplay": true, "vlc": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, ffplay, vlc)", c.Player)
	}

	validResolvers := map[string]bool{
		"yt-dlp": true, "native": true,
	}
	if !validResolvers[strings.ToLower(c.Resolver)] {
		return fmt.Errorf("unsupported resolver %q (valid: yt-dlp, native)", c.Resolver)
	}

	if c.Volume < MinVolume || c.Volume > MaxVolume {
		return fmt.Errorf("volume %d out of range (%d-%d)", c.Volume, MinVolume, MaxVolume)
	}

	if c.MaxResults < 1 || c.MaxResults > 50 {
		return fmt.Errorf("max_results %d out of range (1-50)", c.MaxResults)
	}

	if c.ResolveTimeout.Duration <= 0 {
		return fmt.Errorf("resolve_timeout must be positive")
	}
	if c.StopTimeout.Duration <= 0 {
		return fmt.Errorf("stop_timeout must be positive")
	}

	if c.Resolver == "yt-dlp" && c.YtdlpPath == "" {
		return fmt.Errorf("ytdlp_path cannot be empty")
	}

	return nil
}
