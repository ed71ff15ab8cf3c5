package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/rss2social/rss2social/internal/config"
	"github.com/rss2social/rss2social/internal/dispatcher"
	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/feed"
	"github.com/rss2social/rss2social/internal/ledger"
	"github.com/rss2social/rss2social/internal/logger"
	"github.com/rss2social/rss2social/internal/normalize"
	"github.com/rss2social/rss2social/pkg/httpclient"
	"github.com/rss2social/rss2social/pkg/publishers"
)

// Options are per-invocation overrides coming from the command line.
type Options struct {
	// Limit caps the number of feed entries per pass; zero uses cfg.FeedLimit.
	Limit           int
	DisableMastodon bool
	// Registry builds publishers; nil uses publishers.DefaultRegistry.
	Registry publishers.Registry
}

// Poster represents the rss2social runtime. It owns the ledger store and the publishers and
// runs fetch, normalize and dispatch passes over the configured feed.
type Poster struct {
	cfg        *config.Config
	feedURL    string
	limit      int
	fetcher    *feed.Fetcher
	normalizer *normalize.Normalizer
	dispatcher *dispatcher.Dispatcher
	publishers []publishers.Publisher
	store      ledger.Store
	interval   time.Duration
	log        logger.Logger
}

// NewPoster builds the runtime from settings and the loaded config document. The ledger is
// loaded once here; a legacy ledger aborts startup.
func NewPoster(ctx context.Context, cfg *config.Config, doc *config.Document, opts Options, log logger.Logger) (*Poster, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if doc == nil {
		return nil, fmt.Errorf("config document must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log = logger.With(log, "run_id", uuid.NewString())

	limit := opts.Limit
	if limit <= 0 {
		limit = cfg.FeedLimit
	}

	dests, err := doc.Destinations()
	if err != nil {
		return nil, fmt.Errorf("load destinations: %w", err)
	}
	summaries := make([]string, 0, len(dests))
	for _, d := range dests {
		summaries = append(summaries, d.String())
	}
	log.InfoObj("destinations loaded", "destinations_meta", map[string]any{
		"count":        len(dests),
		"destinations": summaries,
	})

	reg := opts.Registry
	if reg == nil {
		reg = publishers.DefaultRegistry()
	}
	pubs, err := publishers.BuildAll(ctx, reg, dests, publishers.Options{
		HTTPTimeout:  cfg.HTTPTimeout,
		ImageTimeout: cfg.ImageTimeout,
		Log:          log,
	})
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	store, err := ledger.NewStore(cfg.LedgerType, cfg.LedgerPath)
	if err != nil {
		closePublishers(pubs, log)
		return nil, fmt.Errorf("init ledger: %w", err)
	}
	l, err := ledger.Load(ctx, store, log)
	if err != nil {
		closePublishers(pubs, log)
		_ = store.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	log.InfoObj("ledger loaded", "ledger_meta", map[string]any{
		"type":    cfg.LedgerType,
		"path":    cfg.LedgerPath,
		"links":   len(l.Links()),
		"records": l.Len(),
	})

	disabled := map[publishers.Kind]bool{}
	if opts.DisableMastodon {
		disabled[publishers.KindMastodon] = true
	}

	return &Poster{
		cfg:        cfg,
		feedURL:    doc.RSSFeed,
		limit:      limit,
		fetcher:    feed.NewFetcher(httpclient.NewRestyClient(cfg.HTTPTimeout), log),
		normalizer: normalize.New(cfg.SummaryMaxLen),
		dispatcher: dispatcher.New(l, store, pubs, dispatcher.Options{DisabledKinds: disabled}, log),
		publishers: pubs,
		store:      store,
		interval:   cfg.PollInterval,
		log:        log,
	}, nil
}

// Run executes a single pass, or polls every interval until ctx is cancelled when an
// interval is configured. Resources are released before Run returns.
func (p *Poster) Run(ctx context.Context) error {
	if p == nil || p.dispatcher == nil {
		return fmt.Errorf("poster is not initialized")
	}
	defer p.close()

	if p.interval <= 0 {
		p.runOnce(ctx)
		return nil
	}

	p.log.InfoObj("poll loop starting", "poster_state", map[string]any{
		"feed":          p.feedURL,
		"publishers":    len(p.publishers),
		"poll_interval": p.interval.String(),
	})

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("poll loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce performs one fetch, normalize and dispatch pass. A feed failure ends the pass
// without publishing anything.
func (p *Poster) runOnce(ctx context.Context) dispatcher.Report {
	start := time.Now()

	entries, err := p.fetcher.Fetch(ctx, p.feedURL, p.limit)
	if err != nil {
		p.log.ErrorObj("feed fetch failed", "feed_error", map[string]any{
			"url":   p.feedURL,
			"error": err.Error(),
		})
		return dispatcher.Report{}
	}

	posts := p.normalize(entries)
	report := p.dispatcher.Run(ctx, posts)

	p.log.InfoObj("pass completed", "pass_meta", map[string]any{
		"entries":    len(entries),
		"posts":      len(posts),
		"published":  report.Published,
		"failed":     report.Failed,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return report
}

func (p *Poster) normalize(entries []domain.FeedEntry) []domain.Post {
	posts := make([]domain.Post, 0, len(entries))
	for i, entry := range entries {
		post, err := p.normalizer.Normalize(entry)
		if err != nil {
			p.log.WarnObj("skipping feed entry", "entry_error", map[string]any{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		posts = append(posts, post)
	}
	return posts
}

func (p *Poster) close() {
	if p == nil {
		return
	}
	closePublishers(p.publishers, p.log)
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("ledger close failed", "error", err)
	}
}

func closePublishers(pubs []publishers.Publisher, log logger.Logger) {
	for _, pub := range pubs {
		c, ok := pub.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			log.ErrorObj("publisher close failed", "publisher_error", map[string]any{
				"kind":    pub.Kind(),
				"account": pub.AccountID(),
				"error":   err.Error(),
			})
		}
	}
}
