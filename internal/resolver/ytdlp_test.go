package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"u2b/internal/media"
)

func TestParseYtdlpVideo(t *testing.T) {
	desc, err := parseYtdlpVideo(loadFixture(t, "video.json"))
	if err != nil {
		t.Fatalf("parseYtdlpVideo() error: %v", err)
	}

	if desc.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", desc.ID)
	}
	if desc.Title != "Rick Astley - Never Gonna Give You Up" {
		t.Errorf("Title = %q", desc.Title)
	}
	if desc.DurationSeconds != 212 {
		t.Errorf("DurationSeconds = %d, want 212", desc.DurationSeconds)
	}
	if !strings.HasPrefix(desc.StreamURL, "https://rr1---sn.googlevideo.com/") {
		t.Errorf("StreamURL = %q", desc.StreamURL)
	}
	if desc.Uploader != "Rick Astley" {
		t.Errorf("Uploader = %q", desc.Uploader)
	}
}

func TestParseYtdlpVideoPlaylist(t *testing.T) {
	data := []byte(`{"_type":"playlist","entries":[{"id":"4xDzrJKXOOY","title":"Lofi Beats Mix","duration":3600,"channel":"Chillhop","url":"https://example/stream1"}]}`)

	desc, err := parseYtdlpVideo(data)
	if err != nil {
		t.Fatalf("parseYtdlpVideo() error: %v", err)
	}
	if desc.Title != "Lofi Beats Mix" || desc.DurationSeconds != 3600 {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	if desc.Uploader != "Chillhop" {
		t.Errorf("Uploader should fall back to channel, got %q", desc.Uploader)
	}
	if desc.WebpageURL != media.WatchURL("4xDzrJKXOOY") {
		t.Errorf("WebpageURL = %q", desc.WebpageURL)
	}
}

func TestParseYtdlpVideoErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty playlist", `{"_type":"playlist","entries":[]}`, ErrNotFound},
		{"no url", `{"id":"dQw4w9WgXcQ","title":"x"}`, ErrNoStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseYtdlpVideo([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := parseYtdlpVideo([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseYtdlpSearch(t *testing.T) {
	results, err := parseYtdlpSearch(loadFixture(t, "search_playlist.json"))
	if err != nil {
		t.Fatalf("parseYtdlpSearch() error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].DurationSeconds != media.UnknownDuration {
		t.Errorf("null duration should be unknown, got %d", results[0].DurationSeconds)
	}
	if results[0].Uploader != "Lofi Girl" {
		t.Errorf("Uploader = %q, want channel fallback", results[0].Uploader)
	}
	if results[1].DurationSeconds != 3600 {
		t.Errorf("DurationSeconds = %d, want 3600", results[1].DurationSeconds)
	}
	if results[1].Uploader != "Chillhop Music" {
		t.Errorf("Uploader = %q, want Chillhop Music", results[1].Uploader)
	}
}

func TestClassifyYtdlpError(t *testing.T) {
	runErr := errors.New("exit status 1")
	tests := []struct {
		stderr string
		want   error
	}{
		{"ERROR: [youtube] abc: Private video. Sign in if you've been granted access", ErrBlocked},
		{"ERROR: [youtube] abc: Video unavailable. The uploader has not made this video available in your country", ErrBlocked},
		{"ERROR: [youtube] abc: Sign in to confirm your age", ErrBlocked},
		{"ERROR: [youtube] abc: Video unavailable", ErrNotFound},
		{"ERROR: [youtube] abc: Requested format is not available", ErrNoStream},
		{"ERROR: Unsupported URL: https://example.com", ErrInvalidURL},
		{"ERROR: [youtube] abc: Unable to download webpage: <urlopen error [Errno -3] Temporary failure in name resolution>", ErrNetwork},
		{"ERROR: [youtube] abc: HTTP Error 429: Too Many Requests", ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.stderr, func(t *testing.T) {
			err := classifyYtdlpError(tt.stderr, runErr)
			if !errors.Is(err, tt.want) {
				t.Errorf("classifyYtdlpError() = %v, want %v", err, tt.want)
			}
		})
	}

	err := classifyYtdlpError("something odd", runErr)
	if !errors.Is(err, runErr) {
		t.Errorf("unknown failures should wrap the run error, got %v", err)
	}
}

// fakeYtdlp writes a shell script standing in for yt-dlp.
func fakeYtdlp(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYtdlpResolve(t *testing.T) {
	fixture, err := filepath.Abs("testdata/video.json")
	if err != nil {
		t.Fatal(err)
	}
	argsFile := filepath.Join(t.TempDir(), "args")
	path := fakeYtdlp(t, fmt.Sprintf(`echo "$@" > %q; cat %q`, argsFile, fixture))

	y := NewYtdlp(path, nil)
	if !y.Available() {
		t.Fatal("fake yt-dlp should be available")
	}

	desc, err := y.Resolve(context.Background(), "never gonna give you up")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if desc.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q", desc.ID)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "-- ytsearch1:never gonna give you up") {
		t.Errorf("search phrase should use ytsearch1, args = %q", args)
	}

	if _, err := y.Resolve(context.Background(), "youtu.be/dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Resolve(url) error: %v", err)
	}
	args, _ = os.ReadFile(argsFile)
	if !strings.Contains(string(args), "-- https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
		t.Errorf("URL should be normalised to a watch URL, args = %q", args)
	}
}

func TestYtdlpResolveForeignURL(t *testing.T) {
	y := NewYtdlp("/nonexistent/yt-dlp", nil)
	_, err := y.Resolve(context.Background(), "https://vimeo.com/1")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("error = %v, want ErrInvalidURL", err)
	}
}

func TestYtdlpResolveFailure(t *testing.T) {
	path := fakeYtdlp(t, `echo "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable" >&2; exit 1`)

	_, err := NewYtdlp(path, nil).Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	var re *Error
	if !errors.As(err, &re) || re.Backend != "yt-dlp" {
		t.Errorf("expected *Error from yt-dlp, got %v", err)
	}
}

func TestYtdlpMissingBinary(t *testing.T) {
	y := NewYtdlp(filepath.Join(t.TempDir(), "no-such-yt-dlp"), nil)
	if y.Available() {
		t.Error("missing binary should not be available")
	}
	_, err := y.Resolve(context.Background(), "lofi")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestYtdlpResolveCancelled(t *testing.T) {
	path := fakeYtdlp(t, `sleep 5`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewYtdlp(path, nil).Resolve(ctx, "lofi")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestYtdlpSearch(t *testing.T) {
	fixture, err := filepath.Abs("testdata/search_playlist.json")
	if err != nil {
		t.Fatal(err)
	}
	path := fakeYtdlp(t, fmt.Sprintf(`cat %q`, fixture))

	results, err := NewYtdlp(path, nil).Search(context.Background(), "lofi", 5)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	empty := fakeYtdlp(t, `echo '{"_type":"playlist","entries":[]}'`)
	if _, err := NewYtdlp(empty, nil).Search(context.Background(), "zzzz", 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty search error = %v, want ErrNotFound", err)
	}
}

func TestYtdlpExtraArgs(t *testing.T) {
	fixture, err := filepath.Abs("testdata/video.json")
	if err != nil {
		t.Fatal(err)
	}
	argsFile := filepath.Join(t.TempDir(), "args")
	path := fakeYtdlp(t, fmt.Sprintf(`echo "$@" > %q; cat %q`, argsFile, fixture))

	y := NewYtdlp(path, nil)
	y.ExtraArgs = []string{"--cookies-from-browser", "firefox"}
	if _, err := y.Resolve(context.Background(), "lofi"); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "--cookies-from-browser firefox -- ytsearch1:lofi") {
		t.Errorf("extra args should precede the target, args = %q", args)
	}
}
