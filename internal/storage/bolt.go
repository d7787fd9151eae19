package storage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// boltBucket holds every wallet key.
var boltBucket = []byte("caelus") //nolint:gochecknoglobals // bucket name

// boltOpenTimeout bounds the wait for another process holding the file lock.
const boltOpenTimeout = time.Second

// BoltBackend stores keys in a bbolt database. Every write is one update
// transaction.
type BoltBackend struct {
	mu   sync.RWMutex
	path string
	db   *bbolt.DB
}

// NewBoltBackend opens or creates the database at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	db, err := openBolt(path)
	if err != nil {
		return nil, err
	}
	return &BoltBackend{path: path, db: db}, nil
}

func openBolt(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, filePermissions, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return db, nil
}

// Get returns the value for key.
func (b *BoltBackend) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	b.mu.RLock()
	defer b.mu.RUnlock()
	err := b.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(boltBucket).Get([]byte(key))
		if raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, translateBolt(err)
	}
	return value, found, nil
}

// Put stores value under key.
func (b *BoltBackend) Put(key, value string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), []byte(value))
	})
	return translateBolt(err)
}

// Delete removes keys in one transaction.
func (b *BoltBackend) Delete(keys ...string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for _, k := range keys {
			if err := bucket.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	return translateBolt(err)
}

// Purge rewrites the database file so that pages freed by Delete, which
// still hold the old bytes, do not survive on disk. Live keys are copied
// into a fresh file that replaces the old one.
func (b *BoltBackend) Purge() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tmpPath := b.path + ".compact"
	_ = os.Remove(tmpPath)

	dst, err := bbolt.Open(tmpPath, filePermissions, &bbolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return fmt.Errorf("opening compaction target: %w", err)
	}
	if err = bbolt.Compact(dst, b.db, 0); err != nil {
		_ = dst.Close()
		_ = os.Remove(tmpPath)
		return translateBolt(err)
	}
	if err = dst.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing compaction target: %w", err)
	}
	if err = b.db.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return translateBolt(err)
	}
	if err = os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing bolt database: %w", err)
	}

	db, err := openBolt(b.path)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}

// Close closes the database.
func (b *BoltBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

func translateBolt(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return fmt.Errorf("bolt: %w", err)
}
