package publishers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rss2social/rss2social/internal/logger"
	"github.com/rss2social/rss2social/pkg/httpclient"
)

// Options carries the shared settings publishers are built with.
type Options struct {
	HTTPTimeout  time.Duration
	ImageTimeout time.Duration
	// ImageClient fetches link-card images; defaults to a resty client with ImageTimeout
	// that refuses bodies over the Bluesky blob limit.
	ImageClient httpclient.Client
	Log         logger.Logger
}

const (
	defaultHTTPTimeout  = 15 * time.Second
	defaultImageTimeout = 10 * time.Second
)

func (o Options) normalized() Options {
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = defaultHTTPTimeout
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = defaultImageTimeout
	}
	if o.ImageClient == nil {
		o.ImageClient = httpclient.NewRestyClient(o.ImageTimeout, httpclient.WithMaxBodyBytes(blueskyMaxImageBytes))
	}
	o.Log = logger.Ensure(o.Log)
	return o
}

// Builder creates a Publisher from a destination.
type Builder func(ctx context.Context, d Destination, opts Options) (Publisher, error)

// Registry maps destination kinds to builders.
type Registry interface {
	Register(kind Kind, builder Builder)
	PublisherFor(ctx context.Context, d Destination, opts Options) (Publisher, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[Kind]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[Kind]Builder) Registry {
	r := &registry{
		builders: make(map[Kind]Builder),
	}
	for kind, b := range builders {
		r.Register(kind, b)
	}
	return r
}

// Register associates a builder with a destination kind.
func (r *registry) Register(kind Kind, builder Builder) {
	if kind = Kind(strings.TrimSpace(strings.ToLower(string(kind)))); kind == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[kind] = builder
	r.mu.Unlock()
}

// PublisherFor returns the publisher built for the provided destination.
func (r *registry) PublisherFor(ctx context.Context, d Destination, opts Options) (Publisher, error) {
	if d.Kind == "" {
		return nil, fmt.Errorf("destination %q has no kind configured", d.AccountID())
	}

	r.mu.RLock()
	builder := r.builders[Kind(strings.ToLower(string(d.Kind)))]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no publisher registered for kind %q", d.Kind)
	}
	return builder(ctx, d, opts.normalized())
}

// DefaultRegistry wires up known publishers.
func DefaultRegistry() Registry {
	builders := map[Kind]Builder{
		KindBluesky:  newBlueskyPublisher,
		KindMastodon: newMastodonPublisher,
		KindWebhook:  newWebhookPublisher,
		KindSQS:      newSQSPublisher,
		KindSNS:      newSNSPublisher,
		KindPubSub:   newPubSubPublisher,
	}
	return NewRegistry(builders)
}

// BuildAll instantiates publishers for destinations using the registry, preserving order.
func BuildAll(ctx context.Context, reg Registry, dests []Destination, opts Options) ([]Publisher, error) {
	if reg == nil || len(dests) == 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pubs := make([]Publisher, 0, len(dests))
	for _, d := range dests {
		pub, err := reg.PublisherFor(ctx, d, opts)
		if err != nil {
			closeAll(pubs)
			return nil, fmt.Errorf("build %s publisher: %w", d, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

func closeAll(pubs []Publisher) {
	for _, p := range pubs {
		if c, ok := p.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
