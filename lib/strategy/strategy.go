package strategy

import (
	"fmt"
	"sync/atomic"
)

// --------------------------------------------------------------------------
// Strategy Variants
// --------------------------------------------------------------------------

// IStrategy is an optimisation strategy for one kind of logical operation.
// The concrete variants are Traditional, AppendIncrement, AppendIncrementPartialRead,
// Buckets and WriteCache.
type IStrategy interface {
	// Native reports whether the store's add-on-number and add-del-on-list primitives are used.
	Native() bool
	// String renders the strategy in the configuration syntax understood by Parse.
	String() string
}

// Traditional turns every logical operation into an isolated read-then-write.
type Traditional struct{}

// AppendIncrement uses the native primitives of the store on a single physical key.
type AppendIncrement struct{}

// AppendIncrementPartialRead is AppendIncrement plus partial reads of large lists.
type AppendIncrementPartialRead struct{}

// Assignment picks the bucket of an element.
type Assignment uint8

const (
	AssignRandom      Assignment = iota // Uniformly random bucket per element
	AssignHashOfValue                   // Bucket derived from the hash of the element
)

func (a Assignment) String() string {
	switch a {
	case AssignRandom:
		return "Random"
	case AssignHashOfValue:
		return "HashOfValue"
	default:
		return "Unknown"
	}
}

// Buckets splits a logical key into Count physical keys.
type Buckets struct {
	Count      int
	Assignment Assignment
}

// WriteCacheMode controls deletions and bucket choice of the write cache.
type WriteCacheMode uint8

const (
	ModeReplicated    WriteCacheMode = iota // add and delete markers with cancellation
	ModeAddOnly                             // plain appends, deletions rejected
	ModeAddOnlyRandom                       // plain appends to a random write bucket, deletions rejected
)

func (m WriteCacheMode) String() string {
	switch m {
	case ModeReplicated:
		return "Replicated"
	case ModeAddOnly:
		return "AddOnly"
	case ModeAddOnlyRandom:
		return "AddOnlyRandom"
	default:
		return "Unknown"
	}
}

// WriteCache routes all mutations of a logical key to a designated write bucket.
// Count is only used by ModeAddOnlyRandom (number of write buckets).
type WriteCache struct {
	Mode  WriteCacheMode
	Count int
}

// AddOnly reports whether the mode forbids deletions.
func (w WriteCache) AddOnly() bool {
	return w.Mode == ModeAddOnly || w.Mode == ModeAddOnlyRandom
}

func (Traditional) Native() bool                { return false }
func (AppendIncrement) Native() bool            { return true }
func (AppendIncrementPartialRead) Native() bool { return true }
func (Buckets) Native() bool                    { return true }
func (WriteCache) Native() bool                 { return true }

func (Traditional) String() string                { return nameTraditional }
func (AppendIncrement) String() string            { return nameAppendIncrement }
func (AppendIncrementPartialRead) String() string { return namePartialRead }

func (b Buckets) String() string {
	if b.Assignment == AssignHashOfValue {
		return fmt.Sprintf("%s(%d)", nameBucketsHash, b.Count)
	}
	return fmt.Sprintf("%s(%d)", nameBucketsRandom, b.Count)
}

func (w WriteCache) String() string {
	name := nameWCache
	switch w.Mode {
	case ModeAddOnly:
		name = nameWCacheAddOnly
	case ModeAddOnlyRandom:
		name = nameWCacheAddOnlyRandom
	}
	if w.Count > 0 {
		return fmt.Sprintf("%s(%d)", name, w.Count)
	}
	return name
}

// PartialRead reports whether the strategy permits partial reads of lists.
func PartialRead(s IStrategy) bool {
	_, ok := s.(AppendIncrementPartialRead)
	return ok
}

// --------------------------------------------------------------------------
// Strategy Table
// --------------------------------------------------------------------------

// OpType identifies a kind of logical operation (e.g. "page-list" or "category-count").
type OpType string

// Default is the strategy used for operation types that were never bound.
var Default IStrategy = AppendIncrement{}

// Table maps operation types to strategies. The mapping is immutable once published;
// Bind copies it and swaps the pointer, so readers never block and always see a
// consistent mapping. Concurrent binds are last-writer-wins.
type Table struct {
	bindings atomic.Pointer[map[OpType]IStrategy]
	fallback atomic.Pointer[IStrategy]
}

// NewTable creates an empty table (every type resolves to Default).
func NewTable() *Table {
	t := &Table{}
	empty := map[OpType]IStrategy{}
	t.bindings.Store(&empty)
	return t
}

// Bind replaces the strategy of one operation type.
func (t *Table) Bind(op OpType, s IStrategy) {
	for {
		old := t.bindings.Load()
		next := make(map[OpType]IStrategy, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		next[op] = s
		if t.bindings.CompareAndSwap(old, &next) {
			return
		}
	}
}

// BindAll drops all bindings and makes s the strategy of every operation type.
func (t *Table) BindAll(s IStrategy) {
	empty := map[OpType]IStrategy{}
	t.fallback.Store(&s)
	t.bindings.Store(&empty)
}

// Resolve returns the strategy currently bound to op.
func (t *Table) Resolve(op OpType) IStrategy {
	if s, ok := (*t.bindings.Load())[op]; ok {
		return s
	}
	if fb := t.fallback.Load(); fb != nil {
		return *fb
	}
	return Default
}

// Snapshot returns a copy of the explicit bindings.
func (t *Table) Snapshot() map[OpType]IStrategy {
	current := *t.bindings.Load()
	out := make(map[OpType]IStrategy, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}
