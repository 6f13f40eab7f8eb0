package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const savesBucket = "game_saves"

// BoltRepository keeps saves in a single bucket of a BoltDB file.
type BoltRepository struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(savesBucket)); err != nil {
			return fmt.Errorf("create %s bucket: %w", savesBucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(savesBucket))
		if b == nil {
			return fmt.Errorf("%s bucket is missing", savesBucket)
		}
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BoltRepository) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(savesBucket))
		if b == nil {
			return fmt.Errorf("%s bucket is missing", savesBucket)
		}
		return b.Put([]byte(key), value)
	})
}

func (r *BoltRepository) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(savesBucket))
		if b == nil {
			return fmt.Errorf("%s bucket is missing", savesBucket)
		}
		return b.Delete([]byte(key))
	})
}

func (r *BoltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
