package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/pkg/httpclient"
)

// webhookPayload is the JSON body posted to webhook destinations.
type webhookPayload struct {
	Text     string `json:"text"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Summary  string `json:"summary"`
	ImageURL string `json:"image_url,omitempty"`
}

type webhookPublisher struct {
	url     string
	method  string
	headers map[string]string
	client  *resty.Client
}

func newWebhookPublisher(_ context.Context, d Destination, _ Options) (Publisher, error) {
	if d.Webhook == nil {
		return nil, fmt.Errorf("destination %q missing webhook configuration", d.AccountID())
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(d.Webhook.TimeoutSeconds) * time.Second)

	return &webhookPublisher{
		url:     d.Webhook.URL,
		method:  d.Webhook.Method,
		headers: d.Webhook.Headers,
		client:  client,
	}, nil
}

func (h *webhookPublisher) Kind() Kind        { return KindWebhook }
func (h *webhookPublisher) AccountID() string { return h.url }

func (h *webhookPublisher) Publish(ctx context.Context, post domain.Post) error {
	req := h.client.R().
		SetContext(ctx).
		SetBody(webhookPayload{
			Text:     post.Message(),
			Title:    post.Title,
			Link:     post.Link,
			Summary:  post.Summary,
			ImageURL: post.ImageURL,
		})

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		snippet := readBodySnippet(resp.Body())
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), snippet)
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
