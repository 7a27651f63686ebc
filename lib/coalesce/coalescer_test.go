package coalesce

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/ValentinKolb/opexec/lib/bucket"
	"github.com/ValentinKolb/opexec/lib/ops"
	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/strategy"
	"github.com/google/go-cmp/cmp"
)

func appendOf(s strategy.IStrategy, key, value, counterKey string) Mutation {
	return Mutation{Kind: MutList, Strategy: s, Key: key, CounterKey: counterKey, ToAdd: []string{value}}
}

func removeOf(s strategy.IStrategy, key, value, counterKey string) Mutation {
	return Mutation{Kind: MutList, Strategy: s, Key: key, CounterKey: counterKey, ToRemove: []string{value}}
}

func mustAdd(t *testing.T, c *Coalescer, source int, m Mutation) {
	t.Helper()
	if err := c.Add(source, m); err != nil {
		t.Fatalf("Add(%d) returned error: %v", source, err)
	}
}

// TestWriteCacheCancellation tests that add then remove keeps the delete marker and cancels the add marker
func TestWriteCacheCancellation(t *testing.T) {
	s := strategy.WriteCache{Mode: strategy.ModeReplicated}

	for _, e := range []string{"x", "y", "+z", "", "with space"} {
		t.Run(strconv.Quote(e), func(t *testing.T) {
			c := New(bucket.NewResolver())
			mustAdd(t, c, 0, appendOf(s, "k", e, ""))
			mustAdd(t, c, 1, removeOf(s, "k", e, ""))

			entries := c.Entries()
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			entry := entries[0]
			if entry.Key != "k:w" {
				t.Errorf("expected write bucket k:w, got %s", entry.Key)
			}
			if diff := cmp.Diff([]string{ops.DeleteMarker(e)}, entry.ToAdd); diff != "" {
				t.Errorf("add-set mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{ops.AddMarker(e)}, entry.ToRemove); diff != "" {
				t.Errorf("remove-set mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestWriteCacheLastMutationWins tests the surviving marker for sequences of one element
func TestWriteCacheLastMutationWins(t *testing.T) {
	s := strategy.WriteCache{Mode: strategy.ModeReplicated}

	tests := []struct {
		name       string
		adds       []bool
		wantAdd    []string
		wantRemove []string
		wantDelta  int64
	}{
		{name: "add", adds: []bool{true}, wantAdd: []string{"+x"}, wantRemove: []string{"-x"}, wantDelta: 1},
		{name: "remove", adds: []bool{false}, wantAdd: []string{"-x"}, wantRemove: []string{"+x"}, wantDelta: -1},
		{name: "remove add", adds: []bool{false, true}, wantAdd: []string{"+x"}, wantRemove: []string{"-x"}, wantDelta: 0},
		{name: "add remove add", adds: []bool{true, false, true}, wantAdd: []string{"+x"}, wantRemove: []string{"-x"}, wantDelta: 1},
		{name: "add add remove", adds: []bool{true, true, false}, wantAdd: []string{"-x"}, wantRemove: []string{"+x"}, wantDelta: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(bucket.NewResolver())
			for i, add := range tt.adds {
				m := removeOf(s, "k", "x", "n")
				if add {
					m = appendOf(s, "k", "x", "n")
				}
				mustAdd(t, c, i, m)
			}

			entry := c.Entries()[0]
			if diff := cmp.Diff(tt.wantAdd, entry.ToAdd); diff != "" {
				t.Errorf("add-set mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantRemove, entry.ToRemove); diff != "" {
				t.Errorf("remove-set mismatch (-want +got):\n%s", diff)
			}
			if entry.CounterDelta != tt.wantDelta {
				t.Errorf("expected counter delta %d, got %d", tt.wantDelta, entry.CounterDelta)
			}
		})
	}
}

// TestWriteCacheMarkers tests the sets of surviving mutations
func TestWriteCacheMarkers(t *testing.T) {
	s := strategy.WriteCache{Mode: strategy.ModeReplicated}
	c := New(bucket.NewResolver())

	mustAdd(t, c, 0, Mutation{Kind: MutList, Strategy: s, Key: "k", CounterKey: "n", ToAdd: []string{"a", "b"}, ToRemove: []string{"c"}})
	mustAdd(t, c, 1, removeOf(s, "k", "b", "n"))
	mustAdd(t, c, 2, appendOf(s, "k", "b", "n"))

	entry := c.Entries()[0]
	if diff := cmp.Diff([]string{"+a", "-c", "+b"}, entry.ToAdd); diff != "" {
		t.Errorf("add-set mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-a", "-b", "+c"}, entry.ToRemove); diff != "" {
		t.Errorf("remove-set mismatch (-want +got):\n%s", diff)
	}
	if entry.CounterKey != "n:w" || entry.CounterDelta != 1 {
		t.Errorf("expected counter n:w%+d, got %s%+d", 1, entry.CounterKey, entry.CounterDelta)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, entry.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteCacheDisjoint tests that no marker ends up in both sets for random sequences
func TestWriteCacheDisjoint(t *testing.T) {
	s := strategy.WriteCache{Mode: strategy.ModeReplicated}
	rnd := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		c := New(bucket.NewResolver())
		for i := 0; i < 20; i++ {
			e := strconv.Itoa(rnd.IntN(4))
			m := appendOf(s, "k", e, "")
			if rnd.IntN(2) == 0 {
				m = removeOf(s, "k", e, "")
			}
			mustAdd(t, c, i, m)
		}
		for _, entry := range c.Entries() {
			inAdd := make(map[string]bool)
			for _, m := range entry.ToAdd {
				inAdd[m] = true
			}
			for _, m := range entry.ToRemove {
				if inAdd[m] {
					t.Fatalf("run %d: marker %q in both sets (+%v -%v)", run, m, entry.ToAdd, entry.ToRemove)
				}
			}
		}
	}
}

// TestHashBucketsAppendRemoveIsNoop tests that append and remove of one element cancel out
func TestHashBucketsAppendRemoveIsNoop(t *testing.T) {
	s := strategy.Buckets{Count: 4, Assignment: strategy.AssignHashOfValue}
	c := New(bucket.NewResolver())

	mustAdd(t, c, 0, appendOf(s, "k", "x", "k_count"))
	mustAdd(t, c, 1, removeOf(s, "k", "x", ""))

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected both mutations in one bucket, got %d entries", len(entries))
	}
	entry := entries[0]
	if want := "k:" + strconv.Itoa(bucket.Index("x", 4)); entry.Key != want {
		t.Errorf("expected bucket %s, got %s", want, entry.Key)
	}
	if len(entry.ToAdd) != 0 || len(entry.ToRemove) != 0 || entry.CounterDelta != 0 {
		t.Errorf("expected a no-op, got %s with counter delta %d", entry, entry.CounterDelta)
	}
	if op := entry.Operation(); op != nil {
		t.Errorf("expected no operation, got %s", op)
	}
}

// TestAddOnlyRejectsRemove tests that removals are rejected and leave the coalescer unchanged
func TestAddOnlyRejectsRemove(t *testing.T) {
	for _, s := range []strategy.IStrategy{
		strategy.WriteCache{Mode: strategy.ModeAddOnly},
		strategy.WriteCache{Mode: strategy.ModeAddOnlyRandom, Count: 3},
	} {
		t.Run(s.String(), func(t *testing.T) {
			c := New(bucket.NewResolver())
			mustAdd(t, c, 0, appendOf(s, "k", "a", ""))

			err := c.Add(1, Mutation{Kind: MutList, Strategy: s, Key: "k", ToAdd: []string{"b"}, ToRemove: []string{"a"}})
			if store.CodeOf(err) != store.RetCUnsupportedOperation {
				t.Fatalf("expected UnsupportedOperation, got %v", err)
			}

			var added []string
			for _, entry := range c.Entries() {
				added = append(added, entry.ToAdd...)
				if len(entry.ToRemove) != 0 {
					t.Errorf("add-only entry has removals: %v", entry.ToRemove)
				}
			}
			if diff := cmp.Diff([]string{"a"}, added); diff != "" {
				t.Errorf("rejected mutation was applied (-want +got):\n%s", diff)
			}
		})
	}
}

// TestIncrementsAndWrites tests merging of increments and writes
func TestIncrementsAndWrites(t *testing.T) {
	c := New(bucket.NewResolver())
	native := strategy.AppendIncrement{}

	mustAdd(t, c, 0, Mutation{Kind: MutIncrement, Strategy: native, Key: "n", Delta: 3})
	mustAdd(t, c, 1, Mutation{Kind: MutWrite, Strategy: native, Key: "v", Value: []byte("1")})
	mustAdd(t, c, 2, Mutation{Kind: MutIncrement, Strategy: native, Key: "n", Delta: -1})
	mustAdd(t, c, 3, Mutation{Kind: MutWrite, Strategy: native, Key: "v", Value: []byte("2")})
	mustAdd(t, c, 4, Mutation{Kind: MutIncrement, Strategy: strategy.Traditional{}, Key: "m", Delta: 2})
	mustAdd(t, c, 5, Mutation{Kind: MutIncrement, Strategy: strategy.Traditional{}, Key: "m", Delta: -2})

	entries := c.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if op, ok := entries[0].Operation().(*ops.NativeIncrementOp); !ok || op.Key != "n" || op.Delta != 2 {
		t.Errorf("expected native-increment(n, +2), got %v", entries[0].Operation())
	}
	if op, ok := entries[1].Operation().(*ops.WriteOp); !ok || string(op.Value) != "2" {
		t.Errorf("expected write of the last value, got %v", entries[1].Operation())
	}
	if op := entries[2].Operation(); op != nil {
		t.Errorf("increments summing to zero should not produce an operation, got %s", op)
	}
}

// TestIncompatibleUse tests the rejection of conflicting uses of one physical key
func TestIncompatibleUse(t *testing.T) {
	native := strategy.AppendIncrement{}
	traditional := strategy.Traditional{}

	tests := []struct {
		name   string
		first  Mutation
		second Mutation
	}{
		{
			name:   "traditional and native list",
			first:  appendOf(native, "k", "a", ""),
			second: appendOf(traditional, "k", "b", ""),
		},
		{
			name:   "list and number",
			first:  appendOf(native, "k", "a", ""),
			second: Mutation{Kind: MutIncrement, Strategy: native, Key: "k", Delta: 1},
		},
		{
			name:   "two counter keys",
			first:  appendOf(native, "k", "a", "c1"),
			second: appendOf(native, "k", "b", "c2"),
		},
		{
			name:   "counter key is a list",
			first:  appendOf(native, "c", "a", ""),
			second: appendOf(native, "k", "b", "c"),
		},
		{
			name:   "traditional counter shared by two lists",
			first:  appendOf(traditional, "k1", "a", "c"),
			second: appendOf(traditional, "k2", "b", "c"),
		},
		{
			name:   "traditional increment on a native counter",
			first:  appendOf(native, "k", "a", "c"),
			second: Mutation{Kind: MutIncrement, Strategy: traditional, Key: "c", Delta: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(bucket.NewResolver())
			mustAdd(t, c, 0, tt.first)
			before := c.Len()

			err := c.Add(1, tt.second)
			if store.CodeOf(err) != store.RetCUnsupportedOperation {
				t.Fatalf("expected UnsupportedOperation, got %v", err)
			}
			if c.Len() != before {
				t.Errorf("rejected mutation changed the coalescer (%d -> %d groups)", before, c.Len())
			}
		})
	}
}

// TestCompatibleCounters tests that native counters may be shared
func TestCompatibleCounters(t *testing.T) {
	native := strategy.AppendIncrement{}
	c := New(bucket.NewResolver())

	mustAdd(t, c, 0, appendOf(native, "k1", "a", "c"))
	mustAdd(t, c, 1, appendOf(native, "k2", "b", "c"))
	mustAdd(t, c, 2, Mutation{Kind: MutIncrement, Strategy: native, Key: "c", Delta: 5})

	if c.Len() != 3 {
		t.Errorf("expected 3 groups, got %d", c.Len())
	}
}

// TestArrivalOrder tests that groups and elements keep their arrival order
func TestArrivalOrder(t *testing.T) {
	s := strategy.Buckets{Count: 2, Assignment: strategy.AssignRandom}
	next := 0
	resolver := bucket.NewResolverWithSource(func(n int) int {
		next = (next + 1) % n
		return next
	})
	c := New(resolver)

	mustAdd(t, c, 0, Mutation{Kind: MutList, Strategy: s, Key: "k", ToAdd: []string{"a", "b", "c", "d"}})

	entries := c.Entries()
	var got [][]string
	for _, e := range entries {
		got = append(got, append([]string{e.Key}, e.ToAdd...))
	}
	want := [][]string{{"k:1", "a", "c"}, {"k:0", "b", "d"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

// TestTraditionalCounterOperation tests that traditional lists write their counter
func TestTraditionalCounterOperation(t *testing.T) {
	c := New(bucket.NewResolver())
	mustAdd(t, c, 0, appendOf(strategy.Traditional{}, "k", "a", "k_count"))

	op, ok := c.Entries()[0].Operation().(*ops.AppendRemoveOp)
	if !ok {
		t.Fatalf("expected an AppendRemoveOp, got %T", c.Entries()[0].Operation())
	}
	if op.CounterKey != "k_count" {
		t.Errorf("expected counter key k_count, got %q", op.CounterKey)
	}
}

// TestRandomBucketConflictsIgnoreDraws tests that conflicts on random buckets are found whatever bucket is drawn
func TestRandomBucketConflictsIgnoreDraws(t *testing.T) {
	buckets := strategy.Buckets{Count: 2, Assignment: strategy.AssignRandom}
	addOnly := strategy.WriteCache{Mode: strategy.ModeAddOnlyRandom, Count: 2}

	tests := []struct {
		name   string
		first  Mutation
		second Mutation
	}{
		{
			name:   "two counter keys",
			first:  appendOf(buckets, "k", "a", "c1"),
			second: appendOf(buckets, "k", "b", "c2"),
		},
		{
			name:   "two counter keys add only",
			first:  appendOf(addOnly, "k", "a", "c1"),
			second: appendOf(addOnly, "k", "b", "c2"),
		},
		{
			name:   "counter key is a list",
			first:  appendOf(buckets, "k", "a", "c"),
			second: appendOf(buckets, "c", "b", ""),
		},
	}

	// every pair of draws, the second element lands in a different bucket for half of them
	for _, tt := range tests {
		for first := 0; first < 2; first++ {
			for second := 0; second < 2; second++ {
				t.Run(tt.name+" "+strconv.Itoa(first)+strconv.Itoa(second), func(t *testing.T) {
					draws := []int{first, second}
					resolver := bucket.NewResolverWithSource(func(n int) int {
						d := draws[0]
						draws = draws[1:]
						return d
					})
					c := New(resolver)
					mustAdd(t, c, 0, tt.first)

					if err := c.Add(1, tt.second); store.CodeOf(err) != store.RetCUnsupportedOperation {
						t.Fatalf("expected UnsupportedOperation, got %v", err)
					}
				})
			}
		}
	}
}

// TestRandomBucketsSameCounterKey tests that random buckets sharing one counter key are accepted
func TestRandomBucketsSameCounterKey(t *testing.T) {
	s := strategy.Buckets{Count: 2, Assignment: strategy.AssignRandom}
	draws := []int{0, 1}
	c := New(bucket.NewResolverWithSource(func(n int) int {
		d := draws[0]
		draws = draws[1:]
		return d
	}))

	mustAdd(t, c, 0, appendOf(s, "k", "a", "c"))
	mustAdd(t, c, 1, appendOf(s, "k", "b", "c"))

	var got []string
	for _, e := range c.Entries() {
		got = append(got, e.Key+"/"+e.CounterKey)
	}
	if diff := cmp.Diff([]string{"k:0/c:0", "k:1/c:1"}, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}
