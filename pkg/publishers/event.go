package publishers

import (
	"time"

	"github.com/rss2social/rss2social/internal/domain"
)

// Event represents the payload sent to queue and topic destinations.
type Event struct {
	Source      string      `json:"source"`
	Post        domain.Post `json:"post"`
	Message     string      `json:"message"`
	PublishedAt time.Time   `json:"published_at"`
}

// NewEvent constructs an Event for the given post.
func NewEvent(post domain.Post) Event {
	return Event{
		Source:      "rss2social",
		Post:        post,
		Message:     post.Message(),
		PublishedAt: time.Now().UTC(),
	}
}
