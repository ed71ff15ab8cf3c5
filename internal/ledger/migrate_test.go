package ledger

import (
	"testing"
	"time"
)

func TestMigrateLegacyMarksEveryAccount(t *testing.T) {
	accounts := []Account{
		{Kind: "bluesky", ID: "alice"},
		{Kind: "mastodon", ID: "https://m.example"},
	}
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	l, err := MigrateLegacy([]byte(`["https://x/1", "", "https://x/2"]`), accounts, at)
	if err != nil {
		t.Fatalf("MigrateLegacy: %v", err)
	}
	if l.Len() != 4 {
		t.Fatalf("expected 4 triples, got %d", l.Len())
	}
	for _, link := range []string{"https://x/1", "https://x/2"} {
		for _, acc := range accounts {
			if !l.HasPosted(link, acc.Kind, acc.ID) {
				t.Fatalf("missing %s for %+v", link, acc)
			}
		}
	}
}

func TestMigrateLegacyRejectsCurrentFormat(t *testing.T) {
	if _, err := MigrateLegacy([]byte(`{}`), nil, time.Now()); err == nil {
		t.Fatalf("expected error for non-list document")
	}
	if _, err := MigrateLegacy([]byte(`[1, 2]`), nil, time.Now()); err == nil {
		t.Fatalf("expected error for non-string list")
	}
}
