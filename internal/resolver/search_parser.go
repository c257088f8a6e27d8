package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"u2b/internal/media"
)

const initialDataMarker = "ytInitialData"

// ytText covers both {"simpleText": ".."} and {"runs": [{"text": ".."}]}.
type ytText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t ytText) String() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type videoRenderer struct {
	VideoID    string `json:"videoId"`
	Title      ytText `json:"title"`
	LengthText ytText `json:"lengthText"`
	OwnerText  ytText `json:"ownerText"`
}

type initialData struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer struct {
							Contents []struct {
								VideoRenderer *videoRenderer `json:"videoRenderer"`
							} `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

// parseSearchPage extracts video results, in page order, from a YouTube results page.
// The page is parsed as HTML and only the inline script holding ytInitialData is decoded.
func parseSearchPage(body []byte) ([]media.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if strings.Contains(text, initialDataMarker) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, fmt.Errorf("results page has no %s", initialDataMarker)
	}

	start := strings.Index(script, initialDataMarker)
	brace := strings.Index(script[start:], "{")
	if brace < 0 {
		return nil, fmt.Errorf("malformed %s script", initialDataMarker)
	}

	var data initialData
	dec := json.NewDecoder(strings.NewReader(script[start+brace:]))
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", initialDataMarker, err)
	}

	var results []media.SearchResult
	for _, section := range data.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents {
		for _, item := range section.ItemSectionRenderer.Contents {
			v := item.VideoRenderer
			if v == nil || !videoIDPattern.MatchString(v.VideoID) {
				continue
			}
			results = append(results, media.SearchResult{
				ID:              v.VideoID,
				Title:           strings.TrimSpace(v.Title.String()),
				DurationSeconds: media.ParseClock(v.LengthText.String()),
				Uploader:        strings.TrimSpace(v.OwnerText.String()),
				URL:             media.WatchURL(v.VideoID),
			})
		}
	}

	return results, nil
}
