package publishers

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/logger"
	"github.com/rss2social/rss2social/pkg/httpclient"
)

type mastodonStatus struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// mastodonPublisher posts a plain status to a Mastodon instance.
type mastodonPublisher struct {
	account MastodonAccount
	client  *resty.Client
	log     logger.Logger
}

func newMastodonPublisher(_ context.Context, d Destination, opts Options) (Publisher, error) {
	if d.Mastodon == nil {
		return nil, fmt.Errorf("destination %q missing mastodon configuration", d.AccountID())
	}
	return &mastodonPublisher{
		account: *d.Mastodon,
		client:  httpclient.NewRestyHTTPClient(opts.HTTPTimeout),
		log:     logger.Ensure(opts.Log),
	}, nil
}

func (m *mastodonPublisher) Kind() Kind        { return KindMastodon }
func (m *mastodonPublisher) AccountID() string { return m.account.APIBaseURL }

// Publish creates a status with the post message. The Idempotency-Key is derived from the link
// so the instance drops a repeat of the same post within its idempotency window.
func (m *mastodonPublisher) Publish(ctx context.Context, post domain.Post) error {
	var status mastodonStatus
	resp, err := m.client.R().
		SetContext(ctx).
		SetAuthToken(m.account.AccessToken).
		SetHeader("Idempotency-Key", IdempotencyKey(post.Link)).
		SetFormData(map[string]string{"status": post.Message()}).
		SetResult(&status).
		Post(m.account.APIBaseURL + "/api/v1/statuses")
	if err != nil {
		return fmt.Errorf("mastodon status: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mastodon status: status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}

	m.log.DebugObj("mastodon status created", "mastodon_status", map[string]any{
		"instance": m.account.APIBaseURL,
		"id":       status.ID,
		"url":      status.URL,
	})
	return nil
}

// IdempotencyKey returns a stable key for link.
func IdempotencyKey(link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
}
