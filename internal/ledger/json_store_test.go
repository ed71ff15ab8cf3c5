package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "posted_urls.json")
	store := NewJSONStore(path)
	ctx := context.Background()

	l := New()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l.Record("https://x/1", "bluesky", "alice.bsky.social", at)
	l.Record("https://x/1", "mastodon", "https://mastodon.social", at)

	if err := Persist(ctx, store, l); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	got, err := Load(ctx, store, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameEntries(t, l, got)
}

func TestJSONStorePersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_urls.json")
	store := NewJSONStore(path)

	l := New()
	l.Record("https://x/1", "bluesky", "alice", time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	if err := store.Save(context.Background(), l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var doc map[string]map[string]map[string]map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if got := doc["https://x/1"]["accounts_posted"]["bluesky"]["alice"]; got != "2025-03-01T10:00:00Z" {
		t.Fatalf("unexpected layout value %q in %s", got, raw)
	}
}

func TestJSONStoreKeepsForeignTimestampsVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_urls.json")
	raw := `{"https://x/1": {"accounts_posted": {"mastodon": {"https://m.example": "2025-02-01T12:00:00.123456"}}}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	l, err := NewJSONStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ts, ok := l.PostedAt("https://x/1", "mastodon", "https://m.example")
	if !ok || ts != "2025-02-01T12:00:00.123456" {
		t.Fatalf("PostedAt = %q, %v", ts, ok)
	}
}

func TestJSONStoreMissingAndBlankFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l, err := NewJSONStore(filepath.Join(dir, "missing.json")).Load(ctx)
	if err != nil || l.Len() != 0 {
		t.Fatalf("missing file: len=%d err=%v", l.Len(), err)
	}

	blank := filepath.Join(dir, "blank.json")
	if err := os.WriteFile(blank, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	l, err = NewJSONStore(blank).Load(ctx)
	if err != nil || l.Len() != 0 {
		t.Fatalf("blank file: len=%d err=%v", l.Len(), err)
	}
}

func TestLoadRecoversFromCorruptJSON(t *testing.T) {
	for name, content := range map[string]string{
		"not json":        "this is not json",
		"truncated":       `{"https://x/1": {"accounts_posted": {"bluesky": {"alice": "2025`,
		"wrong shape":     `{"https://x/1": 42}`,
		"bracket garbage": "[garbage",
		"truncated list":  `["https://x/1", "https://x/`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "posted_urls.json")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write file: %v", err)
			}
			store := NewJSONStore(path)

			if _, err := store.Load(context.Background()); !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt from store, got %v", err)
			}
			l, err := Load(context.Background(), store, nil)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if l.Len() != 0 {
				t.Fatalf("expected empty ledger, got %d entries", l.Len())
			}
		})
	}
}

func TestLoadRefusesLegacyFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_urls.json")
	if err := os.WriteFile(path, []byte(`["https://x/1", "https://x/2"]`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := Load(context.Background(), NewJSONStore(path), nil); !errors.Is(err, ErrLegacyFormat) {
		t.Fatalf("expected ErrLegacyFormat, got %v", err)
	}
}
