package bstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/lib/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBoltStore(t *testing.T) {
	storetest.RunTxStoreTests(t, "bstore", func(t *testing.T) store.ITxStore {
		return newTestStore(t)
	})
}

// TestReopen tests that committed values survive a restart
func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	tx, _ := s.Begin(ctx)
	reqs := store.NewRequestList()
	reqs.AddAddOnNr("n", 42)
	if _, err := tx.Exec(ctx, reqs, true); err != nil {
		t.Fatalf("Exec() returned error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	s, err = New(Config{Path: path})
	if err != nil {
		t.Fatalf("reopening returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	value, found, err := store.ReadValue(ctx, s, "n")
	if err != nil || !found || string(value) != "42" {
		t.Errorf("expected n=42 after reopen, got %q (found=%v, err=%v)", value, found, err)
	}
}

// TestMissingPath tests the config validation
func TestMissingPath(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected an error for an empty path")
	}
}

// TestEntryEncoding tests the version prefix of stored values
func TestEntryEncoding(t *testing.T) {
	raw := encodeEntry(7, []byte("abc"))
	version, value, err := decodeEntry(raw)
	if err != nil || version != 7 || string(value) != "abc" {
		t.Errorf("decodeEntry() = %d, %q, %v", version, value, err)
	}
	if _, _, err := decodeEntry([]byte{1, 2}); store.CodeOf(err) != store.RetCBackendFailure {
		t.Errorf("expected BackendFailure for a short entry, got %v", err)
	}
}
