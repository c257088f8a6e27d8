package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"u2b/internal/httputil"
	"u2b/internal/media"
)

const defaultSearchURL = "https://www.youtube.com/results"

// videoClient is the part of *youtube.Client the native resolver uses.
type videoClient interface {
	GetVideoContext(ctx context.Context, id string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// Native implements Resolver without external binaries.
// Metadata and stream URLs come from kkdai/youtube; search scrapes the results page.
type Native struct {
	client    videoClient
	http      *http.Client
	searchURL string
	logger    *zap.Logger
}

// NewNative creates a native resolver whose HTTP calls are bounded by timeout.
func NewNative(timeout time.Duration, logger *zap.Logger) *Native {
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := httputil.NewClient(timeout)
	return &Native{
		client:    &youtube.Client{HTTPClient: hc},
		http:      hc,
		searchURL: defaultSearchURL,
		logger:    logger.Named("native"),
	}
}

func (n *Native) Name() string { return "native" }

// Available is always true; the native resolver only needs network access.
func (n *Native) Available() bool { return true }

// Resolve extracts metadata and a direct audio URL for a video or the first search hit.
func (n *Native) Resolve(ctx context.Context, input string) (*media.StreamDescriptor, error) {
	var id string
	switch Classify(input) {
	case KindForeignURL:
		return nil, wrap(n.Name(), input, ErrInvalidURL)
	case KindURL:
		id, _ = ExtractVideoID(input)
	default:
		results, err := n.Search(ctx, input, 1)
		if err != nil {
			return nil, err
		}
		id = results[0].ID
	}

	video, err := n.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, wrap(n.Name(), input, classifyVideoError(ctx, err))
	}

	format := pickAudioFormat(video.Formats)
	if format == nil {
		return nil, wrap(n.Name(), input, ErrNoStream)
	}

	streamURL, err := n.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return nil, wrap(n.Name(), input, classifyVideoError(ctx, err))
	}

	n.logger.Debug("resolved",
		zap.String("id", video.ID),
		zap.Int("itag", format.ItagNo),
		zap.String("mime", format.MimeType))

	duration := media.UnknownDuration
	if video.Duration > 0 {
		duration = int(video.Duration.Round(time.Second) / time.Second)
	}

	return &media.StreamDescriptor{
		ID:              video.ID,
		Title:           video.Title,
		DurationSeconds: duration,
		Uploader:        video.Author,
		StreamURL:       streamURL,
		WebpageURL:      media.WatchURL(video.ID),
	}, nil
}

// Search fetches the results page and reads the embedded ytInitialData.
func (n *Native) Search(ctx context.Context, query string, limit int) ([]media.SearchResult, error) {
	q := url.Values{}
	q.Set("search_query", strings.Join(strings.Fields(query), " "))
	q.Set("sp", "EgIQAQ==") // videos only

	body, err := httputil.GetPage(ctx, n.http, n.searchURL+"?"+q.Encode())
	if err != nil {
		if ctx.Err() != nil {
			return nil, wrap(n.Name(), query, ctx.Err())
		}
		return nil, wrap(n.Name(), query, fmt.Errorf("%w: %v", ErrNetwork, err))
	}

	results, err := parseSearchPage(body)
	if err != nil {
		return nil, wrap(n.Name(), query, err)
	}
	if len(results) == 0 {
		return nil, wrap(n.Name(), query, ErrNotFound)
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// pickAudioFormat prefers audio-only formats by container (m4a, mp3, webm),
// then bitrate, and falls back to any format that carries audio.
func pickAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	bestRank := -1
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 {
			continue
		}
		rank := containerRank(f.MimeType)
		if best == nil || rank > bestRank || (rank == bestRank && bitrate(f) > bitrate(best)) {
			best, bestRank = f, rank
		}
	}
	if best != nil {
		return best
	}

	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 {
			continue
		}
		if best == nil || bitrate(f) > bitrate(best) {
			best = f
		}
	}
	return best
}

func containerRank(mime string) int {
	switch {
	case strings.HasPrefix(mime, "audio/mp4"):
		return 3
	case strings.HasPrefix(mime, "audio/mpeg"):
		return 2
	case strings.HasPrefix(mime, "audio/webm"):
		return 1
	default:
		return 0
	}
}

func bitrate(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

func classifyVideoError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		if statusErr.Status == "ERROR" {
			return fmt.Errorf("%w: %s", ErrNotFound, statusErr.Reason)
		}
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
