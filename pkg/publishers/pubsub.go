package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/logger"
)

// pubsubPublisher delivers post events to a Google Cloud Pub/Sub topic.
type pubsubPublisher struct {
	id     string
	client *pubsub.Client
	topic  *pubsub.Topic
	log    logger.Logger
}

func newPubSubPublisher(ctx context.Context, d Destination, opts Options) (Publisher, error) {
	if d.PubSub == nil {
		return nil, fmt.Errorf("destination %q missing pubsub configuration", d.AccountID())
	}

	client, err := pubsub.NewClient(ctx, d.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubPublisher{
		id:     d.AccountID(),
		client: client,
		topic:  client.Topic(d.PubSub.Topic),
		log:    logger.Ensure(opts.Log),
	}, nil
}

func (p *pubsubPublisher) Kind() Kind        { return KindPubSub }
func (p *pubsubPublisher) AccountID() string { return p.id }

// Publish sends the post event and waits for the server to acknowledge it.
func (p *pubsubPublisher) Publish(ctx context.Context, post domain.Post) error {
	payload, err := json.Marshal(NewEvent(post))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{"link": post.Link},
	})
	msgID, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	p.log.DebugObj("pubsub publisher delivered post", "publisher_pubsub_delivery", map[string]any{
		"topic":      p.id,
		"message_id": msgID,
	})
	return nil
}

// Close flushes pending messages and releases the client.
func (p *pubsubPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	p.topic.Stop()
	return p.client.Close()
}
