package bstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/ValentinKolb/opexec/lib/store"
	bolt "go.etcd.io/bbolt"
)

const (
	// versionSize is the size of the version prefix of every stored value
	versionSize = 8
)

var rootBucket = []byte("opexec")

// Config configures a bolt store.
type Config struct {
	// Path of the database file, created if it does not exist
	Path string
}

// Store is a durable store.ITxStore backed by a bbolt file.
type Store struct {
	db *bolt.DB
}

var _ store.ITxStore = (*Store)(nil)

// New opens (or creates) the bolt store at config.Path.
func New(config Config) (*Store, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("bolt store: \"path\" is required")
	}

	db, err := bolt.Open(config.Path, 0666, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open bolt store at %s: %w", config.Path, err)
	}

	if err := db.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not ensure root bucket exists: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Delete closes the store and removes its file.
func (s *Store) Delete() error {
	path := s.db.Path()
	if err := s.Close(); err != nil {
		return fmt.Errorf("could not close store: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("could not remove path %s: %w", path, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Begin(ctx context.Context) (store.ITransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return store.NewOptimisticTx(s.load, s.commit), nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *Store) load(key string) (value []byte, version uint64, found bool, err error) {
	err = s.db.View(func(txn *bolt.Tx) error {
		raw := txn.Bucket(rootBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		version, value, err = decodeEntry(raw)
		found = err == nil
		return err
	})
	return value, version, found, err
}

// commit runs validation and all writes inside a single bolt write transaction.
// bolt allows only one writer at a time, so validation and apply are atomic.
func (s *Store) commit(versions map[string]uint64, writes map[string][]byte) error {
	return s.db.Update(func(txn *bolt.Tx) error {
		bucket := txn.Bucket(rootBucket)

		current := make(map[string]uint64, len(versions))
		for key, seen := range versions {
			var version uint64
			if raw := bucket.Get([]byte(key)); raw != nil {
				v, _, err := decodeEntry(raw)
				if err != nil {
					return err
				}
				version = v
			}
			if version != seen {
				return store.Errorf(store.RetCConflictAbort, "key %q changed (version %d, seen %d)", key, version, seen)
			}
			current[key] = version
		}

		for key, value := range writes {
			if err := bucket.Put([]byte(key), encodeEntry(current[key]+1, value)); err != nil {
				return store.Errorf(store.RetCBackendFailure, "writing %q: %v", key, err)
			}
		}
		return nil
	})
}

func encodeEntry(version uint64, value []byte) []byte {
	buf := make([]byte, versionSize+len(value))
	binary.BigEndian.PutUint64(buf, version)
	copy(buf[versionSize:], value)
	return buf
}

// decodeEntry copies the value out of the bolt page, which is only valid during the transaction.
func decodeEntry(raw []byte) (uint64, []byte, error) {
	if len(raw) < versionSize {
		return 0, nil, store.Errorf(store.RetCBackendFailure, "corrupt entry of %d bytes", len(raw))
	}
	value := make([]byte, len(raw)-versionSize)
	copy(value, raw[versionSize:])
	return binary.BigEndian.Uint64(raw), value, nil
}
