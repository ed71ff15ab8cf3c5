package publishers

import (
	"context"
	"errors"
	"testing"

	"github.com/rss2social/rss2social/internal/domain"
)

type stubPublisher struct {
	kind Kind
	id   string
}

func (s *stubPublisher) Kind() Kind                                 { return s.kind }
func (s *stubPublisher) AccountID() string                          { return s.id }
func (s *stubPublisher) Publish(context.Context, domain.Post) error { return nil }

func TestBuildAllPreservesOrder(t *testing.T) {
	reg := NewRegistry(map[Kind]Builder{
		KindBluesky: func(_ context.Context, d Destination, _ Options) (Publisher, error) {
			return &stubPublisher{kind: d.Kind, id: d.AccountID()}, nil
		},
	})
	reg.Register(KindMastodon, func(_ context.Context, d Destination, _ Options) (Publisher, error) {
		return &stubPublisher{kind: d.Kind, id: d.AccountID()}, nil
	})

	pubs, err := BuildAll(context.Background(), reg, []Destination{
		{Kind: KindMastodon, Mastodon: &MastodonAccount{APIBaseURL: "https://m.example"}},
		{Kind: KindBluesky, Bluesky: &BlueskyAccount{Username: "alice"}},
	}, Options{})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 2 || pubs[0].Kind() != KindMastodon || pubs[1].AccountID() != "alice" {
		t.Fatalf("unexpected publishers %+v", pubs)
	}
}

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	pubs, err := BuildAll(context.Background(), DefaultRegistry(), []Destination{
		{Kind: KindWebhook, Webhook: &WebhookEndpoint{URL: "https://example.com"}},
	}, Options{})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 {
		t.Fatalf("expected 1 publisher, got %d", len(pubs))
	}
}

func TestBuildAllUnknownKind(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := BuildAll(context.Background(), reg, []Destination{{Kind: "myspace"}}, Options{})
	if err == nil {
		t.Fatalf("expected error for unregistered kind")
	}

	failing := NewRegistry(map[Kind]Builder{
		KindBluesky: func(context.Context, Destination, Options) (Publisher, error) {
			return nil, errors.New("boom")
		},
	})
	if _, err := BuildAll(context.Background(), failing, []Destination{{Kind: KindBluesky}}, Options{}); err == nil {
		t.Fatalf("expected builder error")
	}
}

type closingPublisher struct {
	stubPublisher
	closed bool
}

func (c *closingPublisher) Close() error {
	c.closed = true
	return nil
}

func TestBuildAllClosesBuiltPublishersOnFailure(t *testing.T) {
	built := &closingPublisher{stubPublisher: stubPublisher{kind: KindPubSub, id: "topic"}}
	reg := NewRegistry(map[Kind]Builder{
		KindPubSub: func(context.Context, Destination, Options) (Publisher, error) {
			return built, nil
		},
		KindBluesky: func(context.Context, Destination, Options) (Publisher, error) {
			return nil, errors.New("bad credentials")
		},
	})

	_, err := BuildAll(context.Background(), reg, []Destination{{Kind: KindPubSub}, {Kind: KindBluesky}}, Options{})
	if err == nil {
		t.Fatalf("expected builder error")
	}
	if !built.closed {
		t.Fatalf("publisher built before the failure was not closed")
	}
}
