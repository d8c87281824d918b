package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timoknapp/sports-meet/pkg/logger"
	"go.etcd.io/bbolt"
)

const (
	// BoltDB bucket holding every collection of the meet
	MeetBucket = "meet"
)

// BoltBackend implements Backend using BoltDB for persistence
type BoltBackend struct {
	db *bbolt.DB
}

// NewBoltBackend opens (or creates) the BoltDB file at dbPath
func NewBoltBackend(dbPath string) (*BoltBackend, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	// A second process holding the file lock makes Open block forever without a timeout.
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(MeetBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	logger.Named("store").Info("BoltDB store initialized at: %s", dbPath)
	return &BoltBackend{db: db}, nil
}

// Load returns a copy of the value stored under key
func (b *BoltBackend) Load(key string) ([]byte, bool, error) {
	var out []byte
	var found bool

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MeetBucket))
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}

		// data is only valid for the lifetime of the transaction
		found = true
		out = make([]byte, len(data))
		copy(out, data)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return out, found, nil
}

func (b *BoltBackend) Save(key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MeetBucket))
		if bucket == nil {
			return fmt.Errorf("bucket %s does not exist", MeetBucket)
		}
		return bucket.Put([]byte(key), value)
	})
}

func (b *BoltBackend) Remove(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(MeetBucket))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Close closes the BoltDB database
func (b *BoltBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
