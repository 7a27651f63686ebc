package executor

import (
	"fmt"

	"github.com/ValentinKolb/opexec/lib/coalesce"
	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/strategy"
)

// --------------------------------------------------------------------------
// Read handles
// --------------------------------------------------------------------------

// NumberResult receives the value of a number read once the batch succeeded.
type NumberResult struct {
	Value int64
	Found bool
}

// ListResult receives the value of a list read once the batch succeeded.
type ListResult struct {
	Values []string
	Total  int // length of the full list, may exceed len(Values) if a limit was given
}

// --------------------------------------------------------------------------
// Batch
// --------------------------------------------------------------------------

type access uint8

const (
	accessMutation access = iota
	accessReadNumber
	accessReadList
	accessFlush
)

// pending is one front-end call. The strategy is resolved when the call is made.
type pending struct {
	access      access
	strategy    strategy.IStrategy
	description string

	mutation   coalesce.Mutation // accessMutation
	key        string            // reads and flushes
	counterKey string            // accessFlush
	limit      int               // accessReadList
	number     *NumberResult
	list       *ListResult
}

// Batch collects logical operations that are executed together by Executor.Run.
// A batch is owned by the caller and must not be used concurrently. It can be run again
// (for example after a failure) and is never modified by the executor.
type Batch struct {
	table   *strategy.Table
	pending []*pending
	probe   *coalesce.Coalescer
	exec    *Executor
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.pending)
}

// Reset removes all queued operations.
func (b *Batch) Reset() {
	b.pending = nil
	b.probe = coalesce.New(b.exec.resolver)
}

// Write queues an overwrite of key. Writes are never bucketed.
func (b *Batch) Write(kind strategy.OpType, key string, value []byte) error {
	return b.enqueueMutation(kind, fmt.Sprintf("write(%s)", key), coalesce.Mutation{
		Kind:  coalesce.MutWrite,
		Key:   key,
		Value: value,
	})
}

// Increment queues adding delta to the number stored under key.
func (b *Batch) Increment(kind strategy.OpType, key string, delta int64) error {
	return b.enqueueMutation(kind, fmt.Sprintf("increment(%s, %+d)", key, delta), coalesce.Mutation{
		Kind:  coalesce.MutIncrement,
		Key:   key,
		Delta: delta,
	})
}

// Append queues adding value to the list stored under key. If counterKey is not empty
// the counter of the list is updated as well.
func (b *Batch) Append(kind strategy.OpType, key, value, counterKey string) error {
	return b.AppendRemove(kind, key, []string{value}, nil, counterKey)
}

// Remove queues removing value from the list stored under key.
func (b *Batch) Remove(kind strategy.OpType, key, value, counterKey string) error {
	return b.AppendRemove(kind, key, nil, []string{value}, counterKey)
}

// AppendRemove queues adding toAdd to and removing toRemove from the list stored under key.
func (b *Batch) AppendRemove(kind strategy.OpType, key string, toAdd, toRemove []string, counterKey string) error {
	return b.enqueueMutation(kind, fmt.Sprintf("append-remove(%s, +%v, -%v)", key, toAdd, toRemove), coalesce.Mutation{
		Kind:       coalesce.MutList,
		Key:        key,
		CounterKey: counterKey,
		ToAdd:      toAdd,
		ToRemove:   toRemove,
	})
}

// ReadNumber queues reading the number stored under key (all buckets summed).
// The returned handle is filled once the batch succeeded.
func (b *Batch) ReadNumber(kind strategy.OpType, key string) (*NumberResult, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	p := &pending{
		access:      accessReadNumber,
		strategy:    b.table.Resolve(kind),
		description: fmt.Sprintf("read-number(%s)", key),
		key:         key,
		number:      &NumberResult{},
	}
	b.pending = append(b.pending, p)
	return p.number, nil
}

// ReadList queues reading the list stored under key (all buckets merged). A positive limit
// caps the number of returned elements; strategies with partial reads then only transfer
// the requested part. The returned handle is filled once the batch succeeded.
func (b *Batch) ReadList(kind strategy.OpType, key string, limit int) (*ListResult, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	p := &pending{
		access:      accessReadList,
		strategy:    b.table.Resolve(kind),
		description: fmt.Sprintf("read-list(%s)", key),
		key:         key,
		limit:       limit,
		list:        &ListResult{},
	}
	b.pending = append(b.pending, p)
	return p.list, nil
}

// FlushWriteCache queues merging the write buckets of key (and of counterKey if not empty)
// into the canonical keys. The strategy of kind must be a write cache.
func (b *Batch) FlushWriteCache(kind strategy.OpType, key, counterKey string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s := b.table.Resolve(kind)
	if _, ok := s.(strategy.WriteCache); !ok {
		return store.Errorf(store.RetCUnsupportedOperation, "strategy %s of %q has no write cache", s, kind)
	}
	b.pending = append(b.pending, &pending{
		access:      accessFlush,
		strategy:    s,
		description: fmt.Sprintf("flush-write-cache(%s)", key),
		key:         key,
		counterKey:  counterKey,
	})
	return nil
}

// enqueueMutation resolves the strategy and checks the mutation against the batch.
// A rejected mutation is not queued.
func (b *Batch) enqueueMutation(kind strategy.OpType, description string, m coalesce.Mutation) error {
	if err := validKey(m.Key); err != nil {
		return err
	}
	m.Strategy = b.table.Resolve(kind)
	if err := b.probe.Add(len(b.pending), m); err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	b.pending = append(b.pending, &pending{
		access:      accessMutation,
		strategy:    m.Strategy,
		description: description,
		mutation:    m,
	})
	return nil
}

func validKey(key string) error {
	if key == "" {
		return store.NewError(store.RetCInvalidOperation, "empty key")
	}
	return nil
}
