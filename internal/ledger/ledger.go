// Package ledger records which destination accounts each feed link has been published to.
package ledger

import (
	"sort"
	"time"
)

// TimestampLayout is the persisted timestamp format (ISO-8601, UTC).
const TimestampLayout = time.RFC3339

// LinkRecord holds the accounts a single link was published to, keyed by platform kind and
// then by account identifier. Values are ISO-8601 UTC timestamps.
type LinkRecord struct {
	AccountsPosted map[string]map[string]string `json:"accounts_posted"`
}

// Ledger maps feed entry links to their publish records.
// A (link, kind, account) triple is present only once a publish to it succeeded.
// It is not safe for concurrent use.
type Ledger struct {
	links map[string]*LinkRecord
}

// Entry is one flattened (link, kind, account) triple.
type Entry struct {
	Link      string
	Kind      string
	AccountID string
	PostedAt  string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{links: make(map[string]*LinkRecord)}
}

// HasPosted reports whether link was already published to the given account.
func (l *Ledger) HasPosted(link, kind, accountID string) bool {
	_, ok := l.PostedAt(link, kind, accountID)
	return ok
}

// PostedAt returns the recorded timestamp for the triple.
func (l *Ledger) PostedAt(link, kind, accountID string) (string, bool) {
	if l == nil {
		return "", false
	}
	rec, ok := l.links[link]
	if !ok || rec == nil {
		return "", false
	}
	ts, ok := rec.AccountsPosted[kind][accountID]
	return ts, ok
}

// Record adds the triple with timestamp at. Recording an existing triple is a no-op and
// keeps the first timestamp; the return value reports whether the ledger changed.
func (l *Ledger) Record(link, kind, accountID string, at time.Time) bool {
	return l.set(link, kind, accountID, at.UTC().Format(TimestampLayout))
}

func (l *Ledger) set(link, kind, accountID, ts string) bool {
	if l.links == nil {
		l.links = make(map[string]*LinkRecord)
	}
	rec, ok := l.links[link]
	if !ok || rec == nil {
		rec = &LinkRecord{}
		l.links[link] = rec
	}
	if rec.AccountsPosted == nil {
		rec.AccountsPosted = make(map[string]map[string]string)
	}
	accounts, ok := rec.AccountsPosted[kind]
	if !ok {
		accounts = make(map[string]string)
		rec.AccountsPosted[kind] = accounts
	}
	if _, exists := accounts[accountID]; exists {
		return false
	}
	accounts[accountID] = ts
	return true
}

// Links returns the recorded links in sorted order.
func (l *Ledger) Links() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.links))
	for link := range l.links {
		out = append(out, link)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recorded triples.
func (l *Ledger) Len() int {
	n := 0
	for _, rec := range l.snapshot() {
		for _, accounts := range rec.AccountsPosted {
			n += len(accounts)
		}
	}
	return n
}

// Entries flattens the ledger into triples sorted by link, kind and account.
func (l *Ledger) Entries() []Entry {
	var out []Entry
	for link, rec := range l.snapshot() {
		for kind, accounts := range rec.AccountsPosted {
			for id, ts := range accounts {
				out = append(out, Entry{Link: link, Kind: kind, AccountID: id, PostedAt: ts})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Link != b.Link {
			return a.Link < b.Link
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.AccountID < b.AccountID
	})
	return out
}

// FromEntries rebuilds a ledger from flattened triples, keeping timestamps verbatim.
func FromEntries(entries []Entry) *Ledger {
	l := New()
	for _, e := range entries {
		l.set(e.Link, e.Kind, e.AccountID, e.PostedAt)
	}
	return l
}

// Document returns the persisted mapping form of the ledger.
func (l *Ledger) Document() map[string]LinkRecord {
	out := make(map[string]LinkRecord, len(l.snapshot()))
	for link, rec := range l.snapshot() {
		out[link] = *rec
	}
	return out
}

// FromDocument builds a ledger from its persisted mapping form.
func FromDocument(doc map[string]LinkRecord) *Ledger {
	l := New()
	for link, rec := range doc {
		for kind, accounts := range rec.AccountsPosted {
			for id, ts := range accounts {
				l.set(link, kind, id, ts)
			}
		}
	}
	return l
}

func (l *Ledger) snapshot() map[string]*LinkRecord {
	if l == nil {
		return nil
	}
	return l.links
}
