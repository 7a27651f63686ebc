package ops

import (
	"context"
	"testing"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/store/lstore"
	"github.com/google/go-cmp/cmp"
)

// drive runs operations in lock-step against a store in one transaction and returns the number of rounds
func drive(t *testing.T, s store.ITxStore, operations ...IOperation) int {
	t.Helper()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() returned error: %v", err)
	}
	defer func() { _ = tx.Abort() }()

	maxPhases := 0
	for _, op := range operations {
		maxPhases = max(maxPhases, op.WorkPhases())
	}

	rounds := 0
	var results *store.ResultList
	for phase := 0; phase <= maxPhases; phase++ {
		requests := store.NewRequestList()
		cursor := 0
		for _, op := range operations {
			if phase > op.WorkPhases() {
				continue
			}
			n, err := op.DoPhase(phase, cursor, results, requests)
			if err != nil {
				t.Fatalf("%s: DoPhase(%d) returned error: %v", op, phase, err)
			}
			cursor += n
		}
		if cursor != results.Size() {
			t.Fatalf("phase %d consumed %d of %d results", phase, cursor, results.Size())
		}
		if phase == maxPhases {
			break
		}
		results, err = tx.Exec(ctx, requests, phase == maxPhases-1)
		if err != nil {
			t.Fatalf("round %d failed: %v", phase, err)
		}
		rounds++
	}
	return rounds
}

func put(t *testing.T, s store.ITxStore, key string, value []byte) {
	t.Helper()
	drive(t, s, &WriteOp{Key: key, Value: value})
}

func readNumber(t *testing.T, s store.ITxStore, key string) (int64, bool) {
	t.Helper()
	value, found, err := store.ReadValue(context.Background(), s, key)
	if err != nil {
		t.Fatalf("ReadValue(%s) returned error: %v", key, err)
	}
	if !found {
		return 0, false
	}
	n, err := store.DecodeNumber(value)
	if err != nil {
		t.Fatalf("%s is not a number: %v", key, err)
	}
	return n, true
}

func readList(t *testing.T, s store.ITxStore, key string) []string {
	t.Helper()
	value, found, err := store.ReadValue(context.Background(), s, key)
	if err != nil {
		t.Fatalf("ReadValue(%s) returned error: %v", key, err)
	}
	if !found {
		return nil
	}
	list, err := store.DecodeList(value)
	if err != nil {
		t.Fatalf("%s is not a list: %v", key, err)
	}
	return list
}

// TestIncrementOp tests the two round read-modify-write increment
func TestIncrementOp(t *testing.T) {
	s := lstore.NewLocalStore()

	// missing counts as zero
	op := &IncrementOp{Key: "n", Delta: 5}
	if rounds := drive(t, s, op); rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", rounds)
	}
	if op.Written != 5 {
		t.Errorf("expected written value 5, got %d", op.Written)
	}
	if n, _ := readNumber(t, s, "n"); n != 5 {
		t.Errorf("expected n=5, got %d", n)
	}

	drive(t, s, &IncrementOp{Key: "n", Delta: -7})
	if n, _ := readNumber(t, s, "n"); n != -2 {
		t.Errorf("expected n=-2, got %d", n)
	}
}

// TestManyIncrementsShareRounds tests that k increments need two rounds in total
func TestManyIncrementsShareRounds(t *testing.T) {
	s := lstore.NewLocalStore()
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	operations := make([]IOperation, len(keys))
	for i, k := range keys {
		operations[i] = &IncrementOp{Key: k, Delta: int64(i + 1)}
	}
	if rounds := drive(t, s, operations...); rounds != 2 {
		t.Fatalf("expected 2 rounds for %d increments, got %d", len(keys), rounds)
	}
	for i, k := range keys {
		if n, _ := readNumber(t, s, k); n != int64(i+1) {
			t.Errorf("expected %s=%d, got %d", k, i+1, n)
		}
	}
}

// TestNativeOps tests the single round native primitives
func TestNativeOps(t *testing.T) {
	s := lstore.NewLocalStore()

	rounds := drive(t, s,
		&NativeIncrementOp{Key: "n", Delta: 3},
		&NativeAppendRemoveOp{Key: "l", ToAdd: []string{"a", "b"}, CounterKey: "l_count", CounterDelta: 2},
	)
	if rounds != 1 {
		t.Errorf("expected 1 round, got %d", rounds)
	}

	drive(t, s, &NativeAppendRemoveOp{Key: "l", ToAdd: []string{"c"}, ToRemove: []string{"a"}, CounterKey: "l_count"})

	if n, _ := readNumber(t, s, "n"); n != 3 {
		t.Errorf("expected n=3, got %d", n)
	}
	if diff := cmp.Diff([]string{"b", "c"}, readList(t, s, "l")); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	// a zero delta does not touch the counter
	if n, _ := readNumber(t, s, "l_count"); n != 2 {
		t.Errorf("expected l_count=2, got %d", n)
	}
}

// TestAppendRemoveOp tests the traditional list update including the counter
func TestAppendRemoveOp(t *testing.T) {
	s := lstore.NewLocalStore()
	put(t, s, "l", store.EncodeList([]string{"a", "b", "a"}))

	op := &AppendRemoveOp{Key: "l", ToAdd: []string{"c", "b"}, ToRemove: []string{"a"}, CounterKey: "l_count"}
	if rounds := drive(t, s, op); rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", rounds)
	}
	if diff := cmp.Diff([]string{"b", "c"}, readList(t, s, "l")); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if n, _ := readNumber(t, s, "l_count"); n != 2 {
		t.Errorf("expected l_count=2, got %d", n)
	}
}

// TestReadOps tests reading numbers and lists spread over buckets
func TestReadOps(t *testing.T) {
	s := lstore.NewLocalStore()
	put(t, s, "n:0", store.EncodeNumber(4))
	put(t, s, "n:2", store.EncodeNumber(-1))
	put(t, s, "l", store.EncodeList([]string{"a", "b", "c"}))
	put(t, s, "l:w", store.EncodeList([]string{AddMarker("d"), DeleteMarker("b")}))

	number := &ReadNumberOp{Keys: []string{"n:0", "n:1", "n:2"}}
	list := &ReadListOp{DataKeys: []string{"l"}, WriteKeys: []string{"l:w"}, Markers: true}
	limited := &ReadListOp{DataKeys: []string{"l"}, WriteKeys: []string{"l:w"}, Markers: true, Limit: 2}
	missing := &ReadListOp{DataKeys: []string{"nope"}}

	if rounds := drive(t, s, number, list, limited, missing); rounds != 1 {
		t.Errorf("expected 1 round, got %d", rounds)
	}

	if number.Value != 3 || !number.Found {
		t.Errorf("expected number 3 (found), got %d (found=%v)", number.Value, number.Found)
	}
	if diff := cmp.Diff([]string{"a", "c", "d"}, list.Values); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "c"}, limited.Values); diff != "" || limited.Total != 3 {
		t.Errorf("limited list mismatch (total %d) (-want +got):\n%s", limited.Total, diff)
	}
	if len(missing.Values) != 0 || missing.Values == nil {
		t.Errorf("expected empty list for missing key, got %#v", missing.Values)
	}
}

// TestPartialRead tests that partial reads only transfer the requested prefix
func TestPartialRead(t *testing.T) {
	s := lstore.NewLocalStore()
	put(t, s, "l", store.EncodeList([]string{"a", "b", "c", "d"}))

	op := &ReadListOp{DataKeys: []string{"l"}, Partial: true, Limit: 2}
	drive(t, s, op)

	if diff := cmp.Diff([]string{"a", "b"}, op.Values); diff != "" {
		t.Errorf("partial list mismatch (-want +got):\n%s", diff)
	}
	if op.Total != 4 {
		t.Errorf("expected total 4, got %d", op.Total)
	}
}

// TestFlushWriteCacheOp tests merging a write bucket into the canonical key
func TestFlushWriteCacheOp(t *testing.T) {
	s := lstore.NewLocalStore()
	put(t, s, "l", store.EncodeList([]string{"a", "b"}))
	put(t, s, "l:w", store.EncodeList([]string{AddMarker("c"), DeleteMarker("a")}))
	put(t, s, "c", store.EncodeNumber(2))
	put(t, s, "c:w", store.EncodeNumber(0))

	op := &FlushWriteCacheOp{Key: "l", WriteKeys: []string{"l:w"}, Markers: true, CounterKey: "c", CounterWriteKeys: []string{"c:w"}}
	if rounds := drive(t, s, op); rounds != 2 {
		t.Errorf("expected 2 rounds, got %d", rounds)
	}
	if op.Flushed != 2 {
		t.Errorf("expected 2 flushed markers, got %d", op.Flushed)
	}

	if diff := cmp.Diff([]string{"b", "c"}, readList(t, s, "l")); diff != "" {
		t.Errorf("canonical list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{}, readList(t, s, "l:w")); diff != "" {
		t.Errorf("write bucket not emptied (-want +got):\n%s", diff)
	}
	// counter write bucket was zero, nothing to merge
	if n, _ := readNumber(t, s, "c"); n != 2 {
		t.Errorf("expected c=2, got %d", n)
	}
}

// TestUnexpectedResults tests that malformed results are backend failures
func TestUnexpectedResults(t *testing.T) {
	tests := []struct {
		name    string
		op      IOperation
		phase   int
		results *store.ResultList
	}{
		{
			name:    "missing result",
			op:      &WriteOp{Key: "k"},
			phase:   1,
			results: store.NewResultList(nil),
		},
		{
			name:    "wrong result type",
			op:      &NativeIncrementOp{Key: "k", Delta: 1},
			phase:   1,
			results: store.NewResultList([]store.Result{{Type: store.ReqTWrite}}),
		},
		{
			name:    "failed request",
			op:      &NativeAppendRemoveOp{Key: "k"},
			phase:   1,
			results: store.NewResultList([]store.Result{{Type: store.ReqTAddDelOnList, Code: store.RetCInvalidOperation}}),
		},
		{
			name:    "not a number",
			op:      &IncrementOp{Key: "k", Delta: 1},
			phase:   1,
			results: store.NewResultList([]store.Result{{Type: store.ReqTRead, Value: []byte(`"text"`)}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.DoPhase(tt.phase, 0, tt.results, store.NewRequestList())
			if store.CodeOf(err) != store.RetCBackendFailure {
				t.Errorf("expected BackendFailure, got %v", err)
			}
		})
	}
}

// TestApplyMarkers tests applying write cache markers
func TestApplyMarkers(t *testing.T) {
	got, err := ApplyMarkers([]string{"a", "b"}, []string{DeleteMarker("a"), AddMarker("c"), AddMarker("b")})
	if err != nil {
		t.Fatalf("ApplyMarkers() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "c"}, got); diff != "" {
		t.Errorf("ApplyMarkers() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ApplyMarkers(nil, []string{"plain"}); err == nil {
		t.Error("expected an error for a marker without prefix")
	}
}
