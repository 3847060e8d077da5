package persistence

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var stateBucket = []byte("storefront")

// BoltBackend stores values in a local bbolt file. Every Put runs in its own
// read-write transaction, so a crash never leaves a half-written document.
type BoltBackend struct {
	db *bolt.DB
}

func OpenBoltBackend(path string) (*BoltBackend, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, errCreate := tx.CreateBucketIfNotExists(stateBucket)
		return errCreate
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltBackend{db: db}, nil
}

func (b *BoltBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(stateBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BoltBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("bolt put failed: %w", err)
	}
	return nil
}

func (b *BoltBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("bolt delete failed: %w", err)
	}
	return nil
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
