// Package storetest provides a conformance suite for store.ITxStore implementations.
package storetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/ValentinKolb/opexec/lib/store"
)

// RunTxStoreTests runs all conformance tests against stores created by newStore.
func RunTxStoreTests(t *testing.T, name string, newStore func(t *testing.T) store.ITxStore) {
	t.Run(name+"/ReadWrite", func(t *testing.T) { testReadWrite(t, newStore(t)) })
	t.Run(name+"/NativePrimitives", func(t *testing.T) { testNativePrimitives(t, newStore(t)) })
	t.Run(name+"/MultiRound", func(t *testing.T) { testMultiRound(t, newStore(t)) })
	t.Run(name+"/Conflict", func(t *testing.T) { testConflict(t, newStore(t)) })
	t.Run(name+"/Abort", func(t *testing.T) { testAbort(t, newStore(t)) })
	t.Run(name+"/ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, newStore(t)) })
}

func exec(t *testing.T, s store.ITxStore, reqs *store.RequestList) *store.ResultList {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() returned error: %v", err)
	}
	results, err := tx.Exec(ctx, reqs, true)
	if err != nil {
		t.Fatalf("Exec() returned error: %v", err)
	}
	return results
}

func testReadWrite(t *testing.T, s store.ITxStore) {
	if _, found, err := store.ReadValue(context.Background(), s, "k"); err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}

	reqs := store.NewRequestList()
	reqs.AddWrite("k", []byte("value"))
	exec(t, s, reqs)

	value, found, err := store.ReadValue(context.Background(), s, "k")
	if err != nil || !found || string(value) != "value" {
		t.Errorf("expected value, got %q (found=%v, err=%v)", value, found, err)
	}
}

func testNativePrimitives(t *testing.T, s store.ITxStore) {
	reqs := store.NewRequestList()
	reqs.AddAddOnNr("n", 4)
	reqs.AddAddDelOnList("l", []string{"a", "b"}, nil)
	exec(t, s, reqs)

	reqs = store.NewRequestList()
	reqs.AddAddOnNr("n", -1)
	reqs.AddAddDelOnList("l", []string{"c"}, []string{"a"})
	reqs.AddRead("n")
	reqs.AddRead("l")
	results := exec(t, s, reqs)

	if n, _, err := results.ProcessReadNumberAt(2); err != nil || n != 3 {
		t.Errorf("expected n=3, got %d (err=%v)", n, err)
	}
	l, _, err := results.ProcessReadListAt(3)
	if err != nil || len(l) != 2 || l[0] != "b" || l[1] != "c" {
		t.Errorf("expected [b c], got %v (err=%v)", l, err)
	}
}

func testMultiRound(t *testing.T, s store.ITxStore) {
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() returned error: %v", err)
	}

	r0 := store.NewRequestList()
	r0.AddRead("counter")
	if _, err := tx.Exec(ctx, r0, false); err != nil {
		t.Fatalf("round 0 failed: %v", err)
	}

	// nothing is visible before the commit
	r1 := store.NewRequestList()
	r1.AddWrite("counter", store.EncodeNumber(1))
	if _, found, _ := store.ReadValue(ctx, s, "counter"); found {
		t.Fatal("uncommitted write is visible")
	}
	if _, err := tx.Exec(ctx, r1, true); err != nil {
		t.Fatalf("round 1 failed: %v", err)
	}
	if _, found, _ := store.ReadValue(ctx, s, "counter"); !found {
		t.Error("committed write is not visible")
	}
}

func testConflict(t *testing.T, s store.ITxStore) {
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() returned error: %v", err)
	}
	r0 := store.NewRequestList()
	r0.AddRead("a")
	if _, err := tx.Exec(ctx, r0, false); err != nil {
		t.Fatalf("round 0 failed: %v", err)
	}

	w := store.NewRequestList()
	w.AddWrite("a", []byte("other"))
	exec(t, s, w)

	r1 := store.NewRequestList()
	r1.AddWrite("a", []byte("mine"))
	r1.AddWrite("b", []byte("mine"))
	if _, err := tx.Exec(ctx, r1, true); !errors.Is(err, store.ErrConflictAbort) {
		t.Fatalf("expected a conflict, got %v", err)
	}

	if value, _, _ := store.ReadValue(ctx, s, "a"); string(value) != "other" {
		t.Errorf("expected a=other, got %q", value)
	}
	if _, found, _ := store.ReadValue(ctx, s, "b"); found {
		t.Error("write of the aborted transaction is visible")
	}
}

func testAbort(t *testing.T, s store.ITxStore) {
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() returned error: %v", err)
	}
	r := store.NewRequestList()
	r.AddWrite("x", []byte("1"))
	if _, err := tx.Exec(ctx, r, false); err != nil {
		t.Fatalf("Exec() returned error: %v", err)
	}
	if err := tx.Abort(); err != nil {
		t.Fatalf("Abort() returned error: %v", err)
	}
	if err := tx.Abort(); err != nil {
		t.Errorf("second Abort() returned error: %v", err)
	}
	if _, found, _ := store.ReadValue(ctx, s, "x"); found {
		t.Error("write of the aborted transaction is visible")
	}
}

// testConcurrentIncrements runs concurrent read-modify-write increments with retries and checks
// that no update is lost.
func testConcurrentIncrements(t *testing.T, s store.ITxStore) {
	const workers, perWorker = 8, 25
	ctx := context.Background()

	increment := func() error {
		for {
			tx, err := s.Begin(ctx)
			if err != nil {
				return err
			}
			r0 := store.NewRequestList()
			r0.AddRead("counter")
			results, err := tx.Exec(ctx, r0, false)
			if err != nil {
				return err
			}
			n, _, err := results.ProcessReadNumberAt(0)
			if err != nil {
				return err
			}
			r1 := store.NewRequestList()
			r1.AddWrite("counter", store.EncodeNumber(n+1))
			_, err = tx.Exec(ctx, r1, true)
			if errors.Is(err, store.ErrConflictAbort) {
				continue
			}
			return err
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := increment(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("increment failed: %v", err)
	}

	value, _, err := store.ReadValue(ctx, s, "counter")
	if err != nil {
		t.Fatalf("ReadValue() returned error: %v", err)
	}
	if got := string(value); got != strconv.Itoa(workers*perWorker) {
		t.Errorf("expected counter=%d, got %s", workers*perWorker, got)
	}
}
