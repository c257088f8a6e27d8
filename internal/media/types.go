// Package media defines shared types for the u2b application.
package media

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownDuration marks a duration the extractor could not report.
const UnknownDuration = -1

// StreamDescriptor is a resolved, playable item.
// It is never modified after the resolver returns it.
type StreamDescriptor struct {
	ID              string // Video ID (e.g., "dQw4w9WgXcQ")
	Title           string // Display title
	DurationSeconds int    // Length in seconds, or UnknownDuration
	Uploader        string // Channel name
	StreamURL       string // Direct media URL handed to the player
	WebpageURL      string // Canonical watch URL
}

// Info returns the display metadata of the descriptor.
func (d *StreamDescriptor) Info() PlaybackInfo {
	return PlaybackInfo{
		Title:           d.Title,
		DurationSeconds: d.DurationSeconds,
		Uploader:        d.Uploader,
	}
}

// PlaybackInfo is what callers get back from a successful play.
type PlaybackInfo struct {
	Title           string
	DurationSeconds int
	Uploader        string
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ID              string `json:"id"`       // Video ID
	Title           string `json:"title"`    // Display title
	DurationSeconds int    `json:"duration"` // Length in seconds, or UnknownDuration
	Uploader        string `json:"uploader"` // Channel name
	URL             string `json:"url"`      // Watch URL
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// FormatDuration formats seconds as H:MM:SS or M:SS.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		return "unknown"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// ParseClock parses H:MM:SS, M:SS or plain seconds into whole seconds.
// Anything unparseable yields UnknownDuration.
func ParseClock(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownDuration
	}
	total := 0
	for _, part := range strings.Split(s, ":") {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return UnknownDuration
		}
		total = total*60 + v
	}
	return total
}
