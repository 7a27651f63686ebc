package coalesce

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/opexec/lib/bucket"
	"github.com/ValentinKolb/opexec/lib/ops"
	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/strategy"
	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// MutationKind is the kind of a pending mutation.
type MutationKind uint8

const (
	MutList      MutationKind = iota // add and remove list elements
	MutIncrement                     // add a delta to a number
	MutWrite                         // overwrite a value
)

func (k MutationKind) String() string {
	switch k {
	case MutList:
		return "list"
	case MutIncrement:
		return "increment"
	case MutWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Mutation is one pending mutation of a logical key as queued by the caller.
type Mutation struct {
	Kind       MutationKind
	Strategy   strategy.IStrategy
	Key        string
	CounterKey string   // MutList only, optional
	ToAdd      []string // MutList
	ToRemove   []string // MutList
	Delta      int64    // MutIncrement
	Value      []byte   // MutWrite
}

// handling is the way a physical key is mutated.
type handling uint8

const (
	handleTraditional handling = iota // read-modify-write
	handleNative                      // native primitives
	handleMarkers                     // native primitives on a write bucket holding add/delete markers
	handleAddOnly                     // native primitives on a write bucket holding plain elements
)

func handlingOf(kind MutationKind, s strategy.IStrategy) handling {
	if kind == MutWrite || !s.Native() {
		return handleTraditional
	}
	if wc, ok := s.(strategy.WriteCache); ok && kind == MutList {
		if wc.AddOnly() {
			return handleAddOnly
		}
		return handleMarkers
	}
	return handleNative
}

// role is the way a physical key is used by the whole batch.
type role struct {
	counter  bool
	kind     MutationKind
	handling handling
	owner    string // data key owning a traditional counter
}

// additive reports whether the role only applies add-on-number requests, which commute.
func (r role) additive() bool {
	if r.counter {
		return r.handling != handleTraditional
	}
	return r.kind == MutIncrement && r.handling != handleTraditional
}

func (r role) String() string {
	if r.counter {
		return "counter"
	}
	if r.handling == handleTraditional {
		return "traditional " + r.kind.String()
	}
	return "native " + r.kind.String()
}

// group accumulates all mutations of one physical key.
type group struct {
	key        string
	kind       MutationKind
	handling   handling
	counterKey string
	sources    []int

	// element -> true (pending add) or false (pending remove), in arrival order
	elements *linkedhashmap.Map
	// element -> true (add) or false (remove) of the last mutation, in order of the last mutation (handleMarkers only)
	markers *linkedhashmap.Map
	// cancellation markers seen, in arrival order (handleMarkers only)
	counterparts *linkedhashmap.Map

	delta int64
	value []byte
}

func (g *group) role() role {
	return role{kind: g.kind, handling: g.handling}
}

func (g *group) counterRole() role {
	r := role{counter: true, handling: g.handling}
	if g.handling == handleTraditional {
		r.owner = g.key
	}
	return r
}

// --------------------------------------------------------------------------
// Coalescer
// --------------------------------------------------------------------------

// Coalescer groups the mutations of a batch by physical key and merges every group into
// a single entry. It is not safe for concurrent use.
type Coalescer struct {
	resolver *bucket.Resolver
	groups   *linkedhashmap.Map // physical key -> *group
	roles    map[string]role    // every physical key a mutation may use
	counters map[string]string  // physical data key -> physical counter key, for every key a mutation may use
}

// New creates an empty coalescer.
func New(resolver *bucket.Resolver) *Coalescer {
	return &Coalescer{
		resolver: resolver,
		groups:   linkedhashmap.New(),
		roles:    make(map[string]role),
		counters: make(map[string]string),
	}
}

// Len returns the number of physical keys mutated so far.
func (c *Coalescer) Len() int {
	return c.groups.Size()
}

// element is one resolved element of a mutation. candidates holds every target the
// element could have been mapped to, target is the one picked for this plan.
type element struct {
	target     bucket.Target
	candidates []bucket.Target
	value      string
	add        bool
}

// Add resolves and merges one mutation. source identifies the mutation in the entries.
// If the mutation cannot be merged an error with code RetCUnsupportedOperation is returned
// and the coalescer is left unchanged.
func (c *Coalescer) Add(source int, m Mutation) error {
	if err := Check(m); err != nil {
		return err
	}
	h := handlingOf(m.Kind, m.Strategy)

	var elements []element
	switch m.Kind {
	case MutList:
		for _, e := range m.ToAdd {
			elements = append(elements, element{
				target:     c.resolver.Map(m.Strategy, m.Key, e, m.CounterKey),
				candidates: c.resolver.Candidates(m.Strategy, m.Key, e, m.CounterKey),
				value:      e,
				add:        true,
			})
		}
		for _, e := range m.ToRemove {
			elements = append(elements, element{
				target:     c.resolver.Map(m.Strategy, m.Key, e, m.CounterKey),
				candidates: c.resolver.Candidates(m.Strategy, m.Key, e, m.CounterKey),
				value:      e,
			})
		}
	case MutIncrement:
		delta := strconv.FormatInt(m.Delta, 10)
		elements = append(elements, element{
			target:     bucket.Target{Key: c.resolver.MapIncrement(m.Strategy, m.Key, m.Delta)},
			candidates: c.resolver.Candidates(m.Strategy, m.Key, delta, ""),
		})
	case MutWrite:
		target := bucket.Target{Key: m.Key}
		elements = append(elements, element{target: target, candidates: []bucket.Target{target}})
	}

	if err := c.claim(m.Kind, h, elements); err != nil {
		return err
	}

	for _, e := range elements {
		for _, t := range e.candidates {
			g := &group{key: t.Key, kind: m.Kind, handling: h}
			c.roles[t.Key] = g.role()
			if t.CounterKey != "" {
				c.roles[t.CounterKey] = g.counterRole()
				c.counters[t.Key] = t.CounterKey
			}
		}
	}

	for _, e := range elements {
		g := c.group(e.target.Key, m.Kind, h)
		if n := len(g.sources); n == 0 || g.sources[n-1] != source {
			g.sources = append(g.sources, source)
		}
		if e.target.CounterKey != "" && g.counterKey == "" {
			g.counterKey = e.target.CounterKey
			c.roles[g.counterKey] = g.counterRole()
		}

		switch m.Kind {
		case MutList:
			g.apply(e.value, e.add)
		case MutIncrement:
			g.delta += m.Delta
		case MutWrite:
			g.value = m.Value
		}
	}
	return nil
}

// claim checks that all physical keys a mutation may use can be merged with the batch.
// Every candidate bucket is checked, so the outcome does not depend on random bucket choices.
func (c *Coalescer) claim(kind MutationKind, h handling, elements []element) error {
	claims := make(map[string]role)
	check := func(key string, r role) error {
		for _, existing := range []map[string]role{c.roles, claims} {
			if other, ok := existing[key]; ok && other != r && !(other.additive() && r.additive()) {
				return store.Errorf(store.RetCUnsupportedOperation,
					"key %q is used as %s and as %s in the same batch", key, other, r)
			}
		}
		claims[key] = r
		return nil
	}

	for _, e := range elements {
		for _, t := range e.candidates {
			g := &group{key: t.Key, kind: kind, handling: h}
			if err := check(t.Key, g.role()); err != nil {
				return err
			}
			if t.CounterKey == "" {
				continue
			}
			if existing, ok := c.counters[t.Key]; ok && existing != t.CounterKey {
				return store.Errorf(store.RetCUnsupportedOperation,
					"key %q has the counter keys %q and %q in the same batch", t.Key, existing, t.CounterKey)
			}
			if err := check(t.CounterKey, g.counterRole()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Coalescer) group(key string, kind MutationKind, h handling) *group {
	if v, ok := c.groups.Get(key); ok {
		return v.(*group)
	}
	g := &group{
		key:          key,
		kind:         kind,
		handling:     h,
		elements:     linkedhashmap.New(),
		markers:      linkedhashmap.New(),
		counterparts: linkedhashmap.New(),
	}
	c.groups.Put(key, g)
	c.roles[key] = g.role()
	return g
}

// apply records one element mutation. A pending mutation of the opposite kind cancels out.
// Markers are not cancelled: the last mutation of an element is kept as its marker.
func (g *group) apply(e string, add bool) {
	if g.handling == handleMarkers {
		if add {
			g.counterparts.Put(ops.DeleteMarker(e), struct{}{})
		} else {
			g.counterparts.Put(ops.AddMarker(e), struct{}{})
		}
		if last, ok := g.markers.Get(e); ok && last.(bool) != add {
			g.markers.Remove(e)
		}
		g.markers.Put(e, add)
	}

	pending, ok := g.elements.Get(e)
	switch {
	case !ok:
		g.elements.Put(e, add)
	case pending.(bool) != add:
		g.elements.Remove(e)
	}
}

// --------------------------------------------------------------------------
// Entries
// --------------------------------------------------------------------------

// Entry is the merged mutation of one physical key.
type Entry struct {
	Kind         MutationKind
	Key          string
	Native       bool
	ToAdd        []string
	ToRemove     []string
	CounterKey   string
	CounterDelta int64
	Delta        int64
	Value        []byte
	Sources      []int // sources of the merged mutations, in arrival order
}

// Entries returns the merged entries in order of first arrival of their physical key.
func (c *Coalescer) Entries() []*Entry {
	entries := make([]*Entry, 0, c.groups.Size())
	c.groups.Each(func(_, v interface{}) {
		entries = append(entries, v.(*group).entry())
	})
	return entries
}

func (g *group) entry() *Entry {
	e := &Entry{
		Kind:       g.kind,
		Key:        g.key,
		Native:     g.handling != handleTraditional,
		CounterKey: g.counterKey,
		Delta:      g.delta,
		Value:      g.value,
		Sources:    g.sources,
	}
	if g.kind != MutList {
		return e
	}

	var adds, removes []string
	g.elements.Each(func(k, v interface{}) {
		if v.(bool) {
			adds = append(adds, k.(string))
		} else {
			removes = append(removes, k.(string))
		}
	})
	if g.counterKey != "" {
		e.CounterDelta = int64(len(adds) - len(removes))
	}

	if g.handling != handleMarkers {
		e.ToAdd, e.ToRemove = adds, removes
		return e
	}

	surviving := make(map[string]struct{}, g.markers.Size())
	g.markers.Each(func(k, v interface{}) {
		marker := ops.DeleteMarker(k.(string))
		if v.(bool) {
			marker = ops.AddMarker(k.(string))
		}
		surviving[marker] = struct{}{}
		e.ToAdd = append(e.ToAdd, marker)
	})
	g.counterparts.Each(func(k, _ interface{}) {
		if _, ok := surviving[k.(string)]; !ok {
			e.ToRemove = append(e.ToRemove, k.(string))
		}
	})
	return e
}

// Operation returns the phased operation applying the entry, or nil if the entry has no effect.
func (e *Entry) Operation() ops.IOperation {
	switch e.Kind {
	case MutWrite:
		return &ops.WriteOp{Key: e.Key, Value: e.Value}
	case MutIncrement:
		if e.Delta == 0 {
			return nil
		}
		if e.Native {
			return &ops.NativeIncrementOp{Key: e.Key, Delta: e.Delta}
		}
		return &ops.IncrementOp{Key: e.Key, Delta: e.Delta}
	case MutList:
		if len(e.ToAdd) == 0 && len(e.ToRemove) == 0 {
			return nil
		}
		if e.Native {
			return &ops.NativeAppendRemoveOp{Key: e.Key, ToAdd: e.ToAdd, ToRemove: e.ToRemove, CounterKey: e.CounterKey, CounterDelta: e.CounterDelta}
		}
		return &ops.AppendRemoveOp{Key: e.Key, ToAdd: e.ToAdd, ToRemove: e.ToRemove, CounterKey: e.CounterKey}
	default:
		return nil
	}
}

// Targets returns every physical key the entry touches.
func (e *Entry) Targets() []string {
	if e.CounterKey == "" {
		return []string{e.Key}
	}
	return []string{e.Key, e.CounterKey}
}

func (e *Entry) String() string {
	switch e.Kind {
	case MutList:
		return fmt.Sprintf("%s(+%v, -%v)", e.Key, e.ToAdd, e.ToRemove)
	case MutIncrement:
		return fmt.Sprintf("%s(%+d)", e.Key, e.Delta)
	default:
		return fmt.Sprintf("%s(%d bytes)", e.Key, len(e.Value))
	}
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

// Check validates a mutation against its strategy without resolving it.
// Removals are rejected under the add-only write caches.
func Check(m Mutation) error {
	if m.Strategy == nil {
		return store.NewError(store.RetCInternalError, "mutation without strategy")
	}
	if m.Kind != MutList || len(m.ToRemove) == 0 {
		return nil
	}
	if wc, ok := m.Strategy.(strategy.WriteCache); ok && wc.AddOnly() {
		return store.Errorf(store.RetCUnsupportedOperation,
			"strategy %s does not allow removing elements (key %q)", m.Strategy, m.Key)
	}
	return nil
}
