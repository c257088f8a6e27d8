// Package resolver turns a search phrase or a video URL into a playable stream.
// Two backends are provided: yt-dlp run as a subprocess, and a native client
// built on kkdai/youtube with goquery-based search.
package resolver

//go:generate mockgen -destination=mocks/resolver.go -package=mocks u2b/internal/resolver Resolver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"u2b/internal/config"
	"u2b/internal/media"
)

// Resolver is the interface that resolution backends must implement.
type Resolver interface {
	// Resolve returns a playable descriptor for a search phrase or a video URL.
	// Search phrases resolve to the first result.
	Resolve(ctx context.Context, input string) (*media.StreamDescriptor, error)

	// Search returns up to limit results for a query.
	Search(ctx context.Context, query string, limit int) ([]media.SearchResult, error)

	// Name returns the backend name.
	Name() string

	// Available reports whether the backend can run on this machine.
	Available() bool
}

// New creates a resolver from the configuration.
func New(cfg *config.Config, logger *zap.Logger) (Resolver, error) {
	switch strings.ToLower(cfg.Resolver) {
	case "yt-dlp", "":
		y := NewYtdlp(cfg.YtdlpPath, logger)
		y.ExtraArgs = cfg.YtdlpArgs
		return y, nil
	case "native":
		return NewNative(cfg.ResolveTimeout.Duration, logger), nil
	default:
		return nil, fmt.Errorf("unknown resolver %q", cfg.Resolver)
	}
}

// Kind is the result of classifying user input.
type Kind int

const (
	// KindQuery is a free-text search phrase.
	KindQuery Kind = iota
	// KindURL is a recognised YouTube video URL.
	KindURL
	// KindForeignURL is a URL that does not point at a YouTube video.
	KindForeignURL
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindURL:
		return "url"
	case KindForeignURL:
		return "foreign-url"
	default:
		return "unknown"
	}
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
	"www.youtu.be":      true,
}

// Classify decides whether input is a URL or a search phrase. It never touches the network.
func Classify(input string) Kind {
	input = strings.TrimSpace(input)
	if !looksLikeURL(input) {
		return KindQuery
	}
	if _, ok := ExtractVideoID(input); ok {
		return KindURL
	}
	return KindForeignURL
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return true
	}
	if strings.ContainsAny(s, " \t") {
		return false
	}
	for host := range youtubeHosts {
		if strings.HasPrefix(lower, host+"/") {
			return true
		}
	}
	return false
}

// ExtractVideoID returns the video ID from a YouTube URL.
// Supported forms: /watch?v=, youtu.be/<id>, /shorts/<id>, /embed/<id>, /live/<id>.
func ExtractVideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", false
	}

	var id string
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case strings.HasSuffix(host, "youtu.be"):
		id = segments[0]
	case segments[0] == "watch":
		id = u.Query().Get("v")
	case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live" || segments[0] == "v"):
		id = segments[1]
	}

	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}
