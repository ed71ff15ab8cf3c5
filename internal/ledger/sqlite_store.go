package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS posted (
	link       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	account_id TEXT NOT NULL,
	posted_at  TEXT NOT NULL,
	PRIMARY KEY (link, kind, account_id)
);`

// sqliteStore keeps one row per (link, kind, account) triple.
type sqliteStore struct {
	db *sql.DB
}

func openSQLite(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (*Ledger, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link, kind, account_id, posted_at FROM posted`)
	if err != nil {
		return nil, fmt.Errorf("query posted: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Link, &e.Kind, &e.AccountID, &e.PostedAt); err != nil {
			return nil, fmt.Errorf("%w: scan posted row: %v", ErrCorrupt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posted: %w", err)
	}
	return FromEntries(entries), nil
}

// Save rewrites the table inside one transaction.
func (s *sqliteStore) Save(ctx context.Context, l *Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posted`); err != nil {
		return fmt.Errorf("clear posted: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO posted (link, kind, account_id, posted_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range l.Entries() {
		if _, err := stmt.ExecContext(ctx, e.Link, e.Kind, e.AccountID, e.PostedAt); err != nil {
			return fmt.Errorf("insert posted: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit posted: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
