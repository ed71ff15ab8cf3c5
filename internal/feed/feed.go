package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/mmcdole/gofeed"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/logger"
	"github.com/rss2social/rss2social/pkg/httpclient"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
	maxDelay        = 10 * time.Second

	acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5"
)

// statusError is a non-200 feed response.
type statusError struct {
	code    int
	snippet string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("feed returned status %d body: %s", e.code, e.snippet)
}

// retryable reports whether the response may succeed on a later attempt.
func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// Fetcher downloads and parses one RSS/Atom feed.
type Fetcher struct {
	client   httpclient.Client
	log      logger.Logger
	attempts uint
	delay    time.Duration
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithRetry sets the number of fetch attempts and the initial backoff delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
		if delay >= 0 {
			f.delay = delay
		}
	}
}

// NewFetcher returns a Fetcher backed by client.
func NewFetcher(client httpclient.Client, log logger.Logger, opts ...Option) *Fetcher {
	if client == nil {
		client = httpclient.NewRestyClient(15 * time.Second)
	}
	f := &Fetcher{
		client:   client,
		log:      logger.Ensure(log),
		attempts: defaultAttempts,
		delay:    defaultDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns at most limit entries of the feed at url in feed order.
func (f *Fetcher) Fetch(ctx context.Context, url string, limit int) ([]domain.FeedEntry, error) {
	if f == nil || f.client == nil {
		return nil, errors.New("feed fetcher is not initialized")
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("feed url is empty")
	}

	var parsed *gofeed.Feed
	err := retry.Do(
		func() error {
			resp, err := f.client.Get(ctx, url, map[string]string{"Accept": acceptHeader})
			if err != nil {
				return fmt.Errorf("fetch feed: %w", err)
			}
			if resp.StatusCode() != http.StatusOK {
				return &statusError{code: resp.StatusCode(), snippet: responseSnippet(resp.Body())}
			}

			parsed, err = gofeed.NewParser().Parse(bytes.NewReader(resp.Body()))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("parse feed: %w", err))
			}
			return nil
		},
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.MaxDelay(maxDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			f.log.WarnObj("feed fetch failed; retrying", "feed_retry", map[string]any{
				"url":     url,
				"attempt": n + 1,
				"error":   err.Error(),
			})
		}),
		retry.RetryIf(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.retryable()
			}
			return true
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}

	entries := Entries(parsed, limit)
	f.log.InfoObj("feed fetched", "feed_meta", map[string]any{
		"url":     url,
		"title":   parsed.Title,
		"items":   len(parsed.Items),
		"entries": len(entries),
	})
	return entries, nil
}

// Entries maps the first limit items of feed to FeedEntry values. A non-positive limit
// keeps every item.
func Entries(feed *gofeed.Feed, limit int) []domain.FeedEntry {
	if feed == nil {
		return nil
	}
	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]domain.FeedEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, entryFromItem(item))
	}
	return out
}

func entryFromItem(item *gofeed.Item) domain.FeedEntry {
	entry := domain.FeedEntry{
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: item.Description,
	}
	if strings.TrimSpace(entry.Summary) == "" {
		entry.Summary = item.Content
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, c := range media["content"] {
			if u := strings.TrimSpace(c.Attrs["url"]); u != "" {
				entry.MediaContentURLs = append(entry.MediaContentURLs, u)
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc == nil || strings.TrimSpace(enc.URL) == "" {
			continue
		}
		entry.Enclosures = append(entry.Enclosures, domain.Enclosure{
			URL:  strings.TrimSpace(enc.URL),
			Type: strings.TrimSpace(enc.Type),
		})
	}
	return entry
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
