package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"u2b/internal/media"
)

const defaultYtdlpPath = "yt-dlp"

// audioFormat is the yt-dlp format selector, best container first.
const audioFormat = "bestaudio[ext=m4a]/bestaudio[ext=mp3]/bestaudio[ext=webm]/bestaudio/best"

// Ytdlp implements Resolver by running yt-dlp as a subprocess.
// Arguments are passed as an explicit slice; nothing goes through a shell.
type Ytdlp struct {
	// Path is the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// ExtraArgs are appended before the target on every invocation.
	ExtraArgs []string

	logger *zap.Logger
}

// NewYtdlp creates a yt-dlp backed resolver.
func NewYtdlp(path string, logger *zap.Logger) *Ytdlp {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ytdlp{Path: path, logger: logger.Named("yt-dlp")}
}

func (y *Ytdlp) Name() string { return "yt-dlp" }

func (y *Ytdlp) Available() bool {
	_, err := exec.LookPath(y.path())
	return err == nil
}

func (y *Ytdlp) path() string {
	if y.Path != "" {
		return y.Path
	}
	return defaultYtdlpPath
}

// Resolve extracts metadata and a direct audio URL.
// Search phrases go through "ytsearch1:" so the first hit is used.
func (y *Ytdlp) Resolve(ctx context.Context, input string) (*media.StreamDescriptor, error) {
	var target string
	switch Classify(input) {
	case KindForeignURL:
		return nil, wrap(y.Name(), input, ErrInvalidURL)
	case KindURL:
		id, _ := ExtractVideoID(input)
		target = media.WatchURL(id)
	default:
		target = "ytsearch1:" + input
	}

	out, err := y.run(ctx, target, "-J", "--no-warnings", "--no-playlist", "-f", audioFormat)
	if err != nil {
		return nil, wrap(y.Name(), input, err)
	}

	desc, err := parseYtdlpVideo(out)
	if err != nil {
		return nil, wrap(y.Name(), input, err)
	}
	y.logger.Debug("resolved", zap.String("id", desc.ID), zap.String("title", desc.Title))
	return desc, nil
}

// Search lists results without resolving streams.
func (y *Ytdlp) Search(ctx context.Context, query string, limit int) ([]media.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	target := fmt.Sprintf("ytsearch%d:%s", limit, query)

	out, err := y.run(ctx, target, "-J", "--no-warnings", "--flat-playlist")
	if err != nil {
		return nil, wrap(y.Name(), query, err)
	}

	results, err := parseYtdlpSearch(out)
	if err != nil {
		return nil, wrap(y.Name(), query, err)
	}
	if len(results) == 0 {
		return nil, wrap(y.Name(), query, ErrNotFound)
	}
	return results, nil
}

func (y *Ytdlp) run(ctx context.Context, target string, flags ...string) ([]byte, error) {
	args := make([]string, 0, len(flags)+len(y.ExtraArgs)+1)
	args = append(args, flags...)
	args = append(args, y.ExtraArgs...)
	args = append(args, "--", target)

	cmd := exec.CommandContext(ctx, y.path(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	y.logger.Debug("running", zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, classifyYtdlpError(stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

// classifyYtdlpError maps yt-dlp's stderr onto the resolver sentinels.
func classifyYtdlpError(stderr string, runErr error) error {
	msg := strings.TrimSpace(stderr)
	if i := strings.LastIndex(msg, "ERROR:"); i >= 0 {
		msg = strings.TrimSpace(msg[i+len("ERROR:"):])
	}
	lower := strings.ToLower(msg)

	var kind error
	switch {
	case strings.Contains(lower, "private video"),
		strings.Contains(lower, "sign in to confirm"),
		strings.Contains(lower, "in your country"),
		strings.Contains(lower, "blocked"),
		strings.Contains(lower, "members-only"):
		kind = ErrBlocked
	case strings.Contains(lower, "requested format is not available"),
		strings.Contains(lower, "no video formats found"):
		kind = ErrNoStream
	case strings.Contains(lower, "video unavailable"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "not found"):
		kind = ErrNotFound
	case strings.Contains(lower, "unsupported url"),
		strings.Contains(lower, "is not a valid url"):
		kind = ErrInvalidURL
	case strings.Contains(lower, "unable to download"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "name resolution"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "http error 429"):
		kind = ErrNetwork
	}

	if kind == nil {
		if msg == "" {
			return fmt.Errorf("yt-dlp failed: %w", runErr)
		}
		return fmt.Errorf("yt-dlp failed: %s: %w", msg, runErr)
	}
	if msg == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

// ytdlpInfo is the subset of yt-dlp's info JSON that we read.
type ytdlpInfo struct {
	Type       string      `json:"_type"`
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Duration   *float64    `json:"duration"`
	Uploader   string      `json:"uploader"`
	Channel    string      `json:"channel"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	Entries    []ytdlpInfo `json:"entries"`
}

func (i *ytdlpInfo) seconds() int {
	if i.Duration == nil || *i.Duration < 0 {
		return media.UnknownDuration
	}
	return int(math.Round(*i.Duration))
}

func (i *ytdlpInfo) uploader() string {
	if i.Uploader != "" {
		return i.Uploader
	}
	return i.Channel
}

func parseYtdlpVideo(data []byte) (*media.StreamDescriptor, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp output: %w", err)
	}

	if info.Type == "playlist" {
		if len(info.Entries) == 0 {
			return nil, ErrNotFound
		}
		info = info.Entries[0]
	}

	if info.URL == "" {
		return nil, ErrNoStream
	}

	webpage := info.WebpageURL
	if webpage == "" && info.ID != "" {
		webpage = media.WatchURL(info.ID)
	}

	return &media.StreamDescriptor{
		ID:              info.ID,
		Title:           info.Title,
		DurationSeconds: info.seconds(),
		Uploader:        info.uploader(),
		StreamURL:       info.URL,
		WebpageURL:      webpage,
	}, nil
}

func parseYtdlpSearch(data []byte) ([]media.SearchResult, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp output: %w", err)
	}

	results := make([]media.SearchResult, 0, len(info.Entries))
	for _, e := range info.Entries {
		if e.ID == "" {
			continue
		}
		results = append(results, media.SearchResult{
			ID:              e.ID,
			Title:           e.Title,
			DurationSeconds: e.seconds(),
			Uploader:        e.uploader(),
			URL:             media.WatchURL(e.ID),
		})
	}
	return results, nil
}
