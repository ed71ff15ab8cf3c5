// Package normalize turns raw feed entries into publishable posts.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rss2social/rss2social/internal/domain"
)

const (
	// DefaultMaxSummaryLen bounds the summary length, ellipsis included.
	DefaultMaxSummaryLen = 50
	// NoSummaryPlaceholder replaces a missing summary.
	NoSummaryPlaceholder = "No summary available."

	ellipsis = "..."
)

// ErrMalformedEntry is returned when an entry lacks a title or link.
var ErrMalformedEntry = errors.New("malformed feed entry")

var (
	imgSrcRe     = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalizer converts FeedEntry values into domain.Post values.
type Normalizer struct {
	MaxSummaryLen int
}

// New returns a Normalizer bounded to maxSummaryLen runes (DefaultMaxSummaryLen if <= 0).
func New(maxSummaryLen int) *Normalizer {
	if maxSummaryLen <= 0 {
		maxSummaryLen = DefaultMaxSummaryLen
	}
	return &Normalizer{MaxSummaryLen: maxSummaryLen}
}

// Normalize builds a Post from entry. Every field except title and link has a fallback.
func (n *Normalizer) Normalize(entry domain.FeedEntry) (domain.Post, error) {
	title := strings.TrimSpace(entry.Title)
	link := strings.TrimSpace(entry.Link)
	if title == "" || link == "" {
		return domain.Post{}, fmt.Errorf("%w: title=%q link=%q", ErrMalformedEntry, title, link)
	}

	limit := n.MaxSummaryLen
	if limit <= 0 {
		limit = DefaultMaxSummaryLen
	}

	return domain.Post{
		Title:    title,
		Link:     link,
		Summary:  Summary(entry.Summary, limit),
		ImageURL: ImageURL(entry),
	}, nil
}

// Summary cleans a raw HTML summary: headings are dropped with their content, remaining tags
// are stripped, entities decoded, whitespace collapsed, and the result truncated to limit runes.
func Summary(raw string, limit int) string {
	if strings.TrimSpace(raw) == "" {
		return NoSummaryPlaceholder
	}
	return Truncate(cleanHTML(raw), limit)
}

func cleanHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		// read error only; the html5 parser accepts any input
		return collapse(raw)
	}
	doc.Find("h1, h2, h3, h4, h5, h6").Remove()
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Truncate shortens s to at most limit runes, ending in "..." when anything was cut.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	kept := strings.TrimRight(string(runes[:limit-len(ellipsis)]), " ")
	return kept + ellipsis
}

// ImageURL resolves the entry image: media content, then an image enclosure, then the first
// <img src> in the raw summary. An empty result means the entry has no image.
func ImageURL(entry domain.FeedEntry) string {
	for _, u := range entry.MediaContentURLs {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(enc.Type)), "image/") && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	if m := imgSrcRe.FindStringSubmatch(entry.Summary); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
