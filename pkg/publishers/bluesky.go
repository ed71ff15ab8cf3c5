package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/logger"
	"github.com/rss2social/rss2social/pkg/httpclient"
)

const (
	blueskyPostMaxRunes        = 300
	blueskyCardTitleMaxRunes   = 100
	blueskyCardSummaryMaxRunes = 40
	blueskyMaxImageBytes       = 1_000_000

	blueskyPostCollection = "app.bsky.feed.post"
	blueskyExternalEmbed  = "app.bsky.embed.external"
)

type blueskySession struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

type blueskyExternal struct {
	URI         string          `json:"uri"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Thumb       json.RawMessage `json:"thumb,omitempty"`
}

type blueskyEmbed struct {
	Type     string          `json:"$type"`
	External blueskyExternal `json:"external"`
}

type blueskyPost struct {
	Type      string        `json:"$type"`
	Text      string        `json:"text"`
	CreatedAt string        `json:"createdAt"`
	Embed     *blueskyEmbed `json:"embed,omitempty"`
}

type blueskyCreateRecord struct {
	Repo       string      `json:"repo"`
	Collection string      `json:"collection"`
	Record     blueskyPost `json:"record"`
}

type blueskyRecordRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

type blueskyBlobResponse struct {
	Blob json.RawMessage `json:"blob"`
}

// blueskyPublisher posts a link card to a Bluesky account over XRPC.
type blueskyPublisher struct {
	account BlueskyAccount
	client  *resty.Client
	images  httpclient.Client
	log     logger.Logger
	now     func() time.Time
}

func newBlueskyPublisher(_ context.Context, d Destination, opts Options) (Publisher, error) {
	if d.Bluesky == nil {
		return nil, fmt.Errorf("destination %q missing bluesky configuration", d.AccountID())
	}
	return &blueskyPublisher{
		account: *d.Bluesky,
		client:  httpclient.NewRestyHTTPClient(opts.HTTPTimeout),
		images:  opts.ImageClient,
		log:     logger.Ensure(opts.Log),
		now:     time.Now,
	}, nil
}

func (b *blueskyPublisher) Kind() Kind        { return KindBluesky }
func (b *blueskyPublisher) AccountID() string { return b.account.Username }

// Publish logs in, attaches the image when it can, and creates the post.
func (b *blueskyPublisher) Publish(ctx context.Context, post domain.Post) error {
	session, err := b.createSession(ctx)
	if err != nil {
		return err
	}

	external := blueskyExternal{
		URI:         post.Link,
		Title:       clip(post.Title, blueskyCardTitleMaxRunes),
		Description: clip(post.Summary, blueskyCardSummaryMaxRunes),
	}
	if post.ImageURL != "" {
		thumb, err := b.uploadImage(ctx, session, post.ImageURL)
		if err != nil {
			b.log.WarnObj("bluesky image skipped; posting without it", "bluesky_image_error", map[string]any{
				"account":   b.account.Username,
				"image_url": post.ImageURL,
				"error":     err.Error(),
			})
		} else {
			external.Thumb = thumb
		}
	}

	req := blueskyCreateRecord{
		Repo:       session.DID,
		Collection: blueskyPostCollection,
		Record: blueskyPost{
			Type:      blueskyPostCollection,
			Text:      clip(post.Title, blueskyPostMaxRunes),
			CreatedAt: b.now().UTC().Format(time.RFC3339),
			Embed:     &blueskyEmbed{Type: blueskyExternalEmbed, External: external},
		},
	}

	var ref blueskyRecordRef
	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(session.AccessJwt).
		SetBody(req).
		SetResult(&ref).
		Post(b.xrpc("com.atproto.repo.createRecord"))
	if err != nil {
		return fmt.Errorf("create bluesky record: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("create bluesky record: status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}

	b.log.DebugObj("bluesky post created", "bluesky_post", map[string]any{
		"account": b.account.Username,
		"uri":     ref.URI,
	})
	return nil
}

func (b *blueskyPublisher) createSession(ctx context.Context) (blueskySession, error) {
	var session blueskySession
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"identifier": b.account.Username,
			"password":   b.account.Password,
		}).
		SetResult(&session).
		Post(b.xrpc("com.atproto.server.createSession"))
	if err != nil {
		return blueskySession{}, fmt.Errorf("bluesky login: %w", err)
	}
	if resp.IsError() {
		return blueskySession{}, fmt.Errorf("bluesky login: status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	if session.AccessJwt == "" || session.DID == "" {
		return blueskySession{}, fmt.Errorf("bluesky login: response missing session fields")
	}
	return session, nil
}

// uploadImage fetches imageURL and uploads it as a blob. The downloaded bytes only live for
// the duration of this call.
func (b *blueskyPublisher) uploadImage(ctx context.Context, session blueskySession, imageURL string) (json.RawMessage, error) {
	if b.images == nil {
		return nil, fmt.Errorf("no image client configured")
	}

	img, err := b.images.Get(ctx, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if img.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", img.StatusCode())
	}
	data := img.Body()
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch image: empty body")
	}
	if len(data) > blueskyMaxImageBytes {
		return nil, fmt.Errorf("image too large (%d bytes)", len(data))
	}

	mimeType := imageMimeType(img.Header(), data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("unexpected image content type %q", mimeType)
	}

	var blob blueskyBlobResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetAuthToken(session.AccessJwt).
		SetHeader("Content-Type", mimeType).
		SetBody(data).
		SetResult(&blob).
		Post(b.xrpc("com.atproto.repo.uploadBlob"))
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload blob: status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	if len(blob.Blob) == 0 {
		return nil, fmt.Errorf("upload blob: response missing blob")
	}
	return blob.Blob, nil
}

func (b *blueskyPublisher) xrpc(method string) string {
	return b.account.Service + "/xrpc/" + method
}

func imageMimeType(h http.Header, data []byte) string {
	if ct := h.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	return http.DetectContentType(data)
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
