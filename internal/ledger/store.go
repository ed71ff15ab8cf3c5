package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rss2social/rss2social/internal/logger"
)

// Store persists a Ledger. Save overwrites the previously stored content.
type Store interface {
	Load(ctx context.Context) (*Ledger, error)
	Save(ctx context.Context, l *Ledger) error
	Close() error
}

// Supported store types.
const (
	TypeJSON   = "json"
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

var (
	// ErrCorrupt marks persisted state that could not be decoded.
	ErrCorrupt = errors.New("ledger state is corrupt")
	// ErrLegacyFormat marks a legacy list-of-links document that needs MigrateLegacy.
	ErrLegacyFormat = errors.New("ledger uses the legacy list format; run migrate-ledger")
)

// NewStore creates the configured ledger backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	path = strings.TrimSpace(path)

	switch typ {
	case TypeMemory:
		return NewMemoryStore(), nil
	case "", TypeJSON:
		if path == "" {
			return nil, fmt.Errorf("json ledger requires a path")
		}
		return NewJSONStore(path), nil
	case TypeBBolt:
		if path == "" {
			return nil, fmt.Errorf("bbolt ledger requires a path")
		}
		return openBolt(path)
	case TypeSQLite:
		if path == "" {
			return nil, fmt.Errorf("sqlite ledger requires a path")
		}
		return openSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported ledger type %q", typ)
	}
}

// Load reads the ledger from store. Missing or unreadable state yields an empty ledger and a
// warning; losing dedup history only risks re-posting. The only error returned is
// ErrLegacyFormat, which needs an explicit migration.
func Load(ctx context.Context, store Store, log logger.Logger) (*Ledger, error) {
	log = logger.Ensure(log)
	if store == nil {
		return New(), nil
	}

	l, err := store.Load(ctx)
	switch {
	case err == nil && l != nil:
		return l, nil
	case err == nil:
		return New(), nil
	case errors.Is(err, ErrLegacyFormat):
		return nil, err
	default:
		log.WarnObj("ledger unreadable; starting empty", "ledger_error", map[string]any{
			"error": err.Error(),
		})
		return New(), nil
	}
}

// Persist writes the full ledger to store.
func Persist(ctx context.Context, store Store, l *Ledger) error {
	if store == nil {
		return nil
	}
	if err := store.Save(ctx, l); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// MemoryStore keeps the ledger in process memory.
type MemoryStore struct {
	saved []Entry
	Saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*Ledger, error) {
	return FromEntries(m.saved), nil
}

func (m *MemoryStore) Save(_ context.Context, l *Ledger) error {
	m.saved = l.Entries()
	m.Saves++
	return nil
}

func (m *MemoryStore) Close() error { return nil }
