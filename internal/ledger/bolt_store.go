package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const linkBucket = "links"

// boltStore implements a Store backed by BoltDB, one key per link holding its JSON LinkRecord.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(linkBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load reads every link record. A record that fails to decode marks the whole state corrupt.
func (b *boltStore) Load(context.Context) (*Ledger, error) {
	if b == nil || b.db == nil {
		return New(), nil
	}

	doc := make(map[string]LinkRecord)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(linkBucket))
		if bucket == nil {
			return fmt.Errorf("link bucket missing")
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec LinkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("%w: link %q: %v", ErrCorrupt, string(k), err)
			}
			doc[string(k)] = rec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return FromDocument(doc), nil
}

// Save replaces the bucket content with the ledger in a single transaction.
func (b *boltStore) Save(_ context.Context, l *Ledger) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(linkBucket)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("reset link bucket: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(linkBucket))
		if err != nil {
			return fmt.Errorf("create link bucket: %w", err)
		}
		for link, rec := range l.Document() {
			value, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal link record: %w", err)
			}
			if err := bucket.Put([]byte(link), value); err != nil {
				return err
			}
		}
		return nil
	})
}
