// Package dispatcher publishes normalized posts to every configured account exactly once per
// (link, kind, account), using the ledger to remember confirmed publishes across runs.
package dispatcher

import (
	"context"
	"time"

	"github.com/rss2social/rss2social/internal/domain"
	"github.com/rss2social/rss2social/internal/ledger"
	"github.com/rss2social/rss2social/internal/logger"
	"github.com/rss2social/rss2social/pkg/publishers"
)

// Status is the result of one (post, destination) step.
type Status string

const (
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusDisabled  Status = "disabled"
	StatusFailed    Status = "failed"
)

// Outcome records what happened for one post on one destination.
type Outcome struct {
	Link      string
	Kind      publishers.Kind
	AccountID string
	Status    Status
	Err       error
}

// Report summarizes a dispatch run.
type Report struct {
	Published int
	Skipped   int
	Disabled  int
	Failed    int
	Outcomes  []Outcome
}

func (r *Report) add(o Outcome) {
	switch o.Status {
	case StatusPublished:
		r.Published++
	case StatusSkipped:
		r.Skipped++
	case StatusDisabled:
		r.Disabled++
	case StatusFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Options tune a Dispatcher.
type Options struct {
	// DisabledKinds are skipped without touching the ledger.
	DisabledKinds map[publishers.Kind]bool
	Now           func() time.Time
}

// Dispatcher walks posts in feed order and destinations in configuration order.
type Dispatcher struct {
	ledger     *ledger.Ledger
	store      ledger.Store
	publishers []publishers.Publisher
	disabled   map[publishers.Kind]bool
	now        func() time.Time
	log        logger.Logger
}

// New wires a dispatcher around an already loaded ledger and its store.
func New(l *ledger.Ledger, store ledger.Store, pubs []publishers.Publisher, opts Options, log logger.Logger) *Dispatcher {
	if l == nil {
		l = ledger.New()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		ledger:     l,
		store:      store,
		publishers: pubs,
		disabled:   opts.DisabledKinds,
		now:        now,
		log:        logger.Ensure(log),
	}
}

// Ledger returns the in-memory ledger the dispatcher records into.
func (d *Dispatcher) Ledger() *ledger.Ledger {
	if d == nil {
		return nil
	}
	return d.ledger
}

// Run publishes posts to every destination not yet recorded in the ledger. Failures are
// logged and left unrecorded so the next run retries them. A cancelled ctx stops the run
// before the next destination.
func (d *Dispatcher) Run(ctx context.Context, posts []domain.Post) Report {
	var report Report
	if d == nil {
		return report
	}

	for _, post := range posts {
		for _, pub := range d.publishers {
			if ctx.Err() != nil {
				d.log.WarnObj("dispatch interrupted", "dispatch_state", map[string]any{
					"reason":    ctx.Err().Error(),
					"published": report.Published,
				})
				return report
			}
			report.add(d.dispatch(ctx, post, pub))
		}
	}

	d.log.InfoObj("dispatch completed", "dispatch_result", map[string]any{
		"posts":     len(posts),
		"published": report.Published,
		"skipped":   report.Skipped,
		"disabled":  report.Disabled,
		"failed":    report.Failed,
	})
	return report
}

func (d *Dispatcher) dispatch(ctx context.Context, post domain.Post, pub publishers.Publisher) Outcome {
	kind := pub.Kind()
	out := Outcome{Link: post.Link, Kind: kind, AccountID: pub.AccountID()}

	if d.disabled[kind] {
		d.log.DebugObj("destination disabled", "dispatch_skip", map[string]any{
			"link":    post.Link,
			"kind":    kind,
			"account": out.AccountID,
		})
		out.Status = StatusDisabled
		return out
	}
	if d.ledger.HasPosted(post.Link, string(kind), out.AccountID) {
		d.log.DebugObj("already posted", "dispatch_skip", map[string]any{
			"link":    post.Link,
			"kind":    kind,
			"account": out.AccountID,
		})
		out.Status = StatusSkipped
		return out
	}

	if err := pub.Publish(ctx, post); err != nil {
		d.log.ErrorObj("publish failed", "publish_error", map[string]any{
			"link":    post.Link,
			"kind":    kind,
			"account": out.AccountID,
			"error":   err.Error(),
		})
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	d.ledger.Record(post.Link, string(kind), out.AccountID, d.now())
	// The post is already out; a shutdown signal must not lose the record.
	if err := ledger.Persist(context.WithoutCancel(ctx), d.store, d.ledger); err != nil {
		d.log.ErrorObj("ledger persist failed", "ledger_error", map[string]any{
			"link":    post.Link,
			"kind":    kind,
			"account": out.AccountID,
			"error":   err.Error(),
		})
	}

	d.log.InfoObj("post published", "publish_result", map[string]any{
		"link":    post.Link,
		"title":   post.Title,
		"kind":    kind,
		"account": out.AccountID,
	})
	out.Status = StatusPublished
	return out
}
