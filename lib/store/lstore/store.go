package lstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// entry is a committed value together with the write index of the commit that produced it.
type entry struct {
	value   []byte
	version uint64
}

type storeImpl struct {
	data     *xsync.MapOf[string, entry]
	commitMu sync.Mutex
	index    atomic.Uint64
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
func NewLocalStore() store.ITxStore {
	return &storeImpl{
		data:  xsync.NewMapOf[string, entry](),
		index: atomic.Uint64{},
	}
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each commit has a unique, increasing version.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Begin(ctx context.Context) (store.ITransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return store.NewOptimisticTx(s.load, s.commit), nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *storeImpl) load(key string) ([]byte, uint64, bool, error) {
	e, ok := s.data.Load(key)
	if !ok {
		return nil, 0, false, nil
	}
	return e.value, e.version, true, nil
}

// commit validates all versions and applies the writes under the commit lock.
// Readers never take the lock; a reader that observes a half-applied commit
// fails its own validation later.
func (s *storeImpl) commit(versions map[string]uint64, writes map[string][]byte) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for key, seen := range versions {
		var current uint64
		if e, ok := s.data.Load(key); ok {
			current = e.version
		}
		if current != seen {
			return store.Errorf(store.RetCConflictAbort, "key %q changed (version %d, seen %d)", key, current, seen)
		}
	}

	if len(writes) == 0 {
		return nil
	}
	idx := s.incAndGetIndex()
	for key, value := range writes {
		s.data.Store(key, entry{value: value, version: idx})
	}
	return nil
}
