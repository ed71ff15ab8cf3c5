package publishers

import (
	"context"

	"github.com/rss2social/rss2social/internal/domain"
)

// Publisher sends a post to one destination account. A nil error means the remote side
// confirmed the post; any error is a failure for this destination only. Publishers never retry.
type Publisher interface {
	Kind() Kind
	AccountID() string
	Publish(ctx context.Context, post domain.Post) error
}
