package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Account identifies one destination as stored in the ledger.
type Account struct {
	Kind string
	ID   string
}

// MigrateLegacy converts a legacy document (a JSON list of links) into a ledger in which every
// listed link counts as posted to every given account at time at.
func MigrateLegacy(raw []byte, accounts []Account, at time.Time) (*Ledger, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("not a legacy ledger document")
	}

	var links []string
	if err := json.Unmarshal(trimmed, &links); err != nil {
		return nil, fmt.Errorf("decode legacy ledger: %w", err)
	}

	l := New()
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		for _, acc := range accounts {
			l.Record(link, acc.Kind, acc.ID, at)
		}
	}
	return l, nil
}
