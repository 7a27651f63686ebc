package store

import (
	"context"
	"errors"
)

// --------------------------------------------------------------------------
// Optimistic Transaction (shared by all local backends)
// --------------------------------------------------------------------------

// VersionedLoader loads the committed value of a key together with its version.
// An absent key returns found=false and version 0.
type VersionedLoader func(key string) (value []byte, version uint64, found bool, err error)

// Committer atomically validates the recorded versions and applies the buffered writes.
// It must return an error with code RetCConflictAbort (and apply nothing) if any
// recorded version differs from the committed one.
type Committer func(versions map[string]uint64, writes map[string][]byte) error

// OptimisticTx implements ITransaction on top of a VersionedLoader and a Committer.
// Every key touched by the transaction records the version seen on first touch;
// writes are buffered until commit.
type OptimisticTx struct {
	load     VersionedLoader
	commit   Committer
	versions map[string]uint64
	writes   map[string][]byte
	done     bool
}

// NewOptimisticTx creates a new transaction.
func NewOptimisticTx(load VersionedLoader, commit Committer) *OptimisticTx {
	return &OptimisticTx{
		load:     load,
		commit:   commit,
		versions: make(map[string]uint64),
		writes:   make(map[string][]byte),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (t *OptimisticTx) Exec(ctx context.Context, reqs *RequestList, commit bool) (*ResultList, error) {
	if t.done {
		return nil, NewError(RetCInvalidOperation, "transaction already finished")
	}
	if err := ctx.Err(); err != nil {
		_ = t.Abort()
		return nil, err
	}

	results := make([]Result, 0, reqs.Size())
	failed := -1
	for i, req := range reqs.Requests() {
		res, err := t.apply(req)
		if err != nil {
			_ = t.Abort()
			return nil, err
		}
		if failed < 0 && !isBenign(req.Type, res.Code) {
			failed = i
		}
		results = append(results, res)
	}
	list := NewResultList(results)

	if !commit {
		return list, nil
	}

	t.done = true
	if failed >= 0 {
		return list, Errorf(RetCInvalidOperation, "transaction not committed: request %d (%s) failed: %s",
			failed, reqs.Requests()[failed], results[failed].Msg)
	}
	if err := t.commit(t.versions, t.writes); err != nil {
		return nil, err
	}
	return list, nil
}

func (t *OptimisticTx) Abort() error {
	t.done = true
	t.versions = nil
	t.writes = nil
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// isBenign reports whether a result code does not prevent a commit.
func isBenign(typ RequestType, code RetCode) bool {
	if code == RetCSuccess {
		return true
	}
	return code == RetCNotFound && (typ == ReqTRead || typ == ReqTReadSublist)
}

// get returns the value of a key as seen by this transaction.
func (t *OptimisticTx) get(key string) ([]byte, bool, error) {
	if v, ok := t.writes[key]; ok {
		return v, true, nil
	}
	value, version, found, err := t.load(key)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, false, err
		}
		return nil, false, Errorf(RetCBackendFailure, "loading %q: %v", key, err)
	}
	if _, seen := t.versions[key]; !seen {
		t.versions[key] = version
	}
	return value, found, nil
}

// put buffers a write. The key is loaded first (if not yet seen) so its version takes part in validation.
func (t *OptimisticTx) put(key string, value []byte) error {
	if _, seen := t.versions[key]; !seen {
		if _, _, err := t.get(key); err != nil {
			return err
		}
	}
	t.writes[key] = value
	return nil
}

func (t *OptimisticTx) apply(req Request) (Result, error) {
	res := Result{Type: req.Type}

	switch req.Type {
	case ReqTRead:
		value, found, err := t.get(req.Key)
		if err != nil {
			return res, err
		}
		if !found {
			res.Code, res.Msg = RetCNotFound, "key not found"
			return res, nil
		}
		res.Value = value

	case ReqTWrite:
		value := make([]byte, len(req.Value))
		copy(value, req.Value)
		if err := t.put(req.Key, value); err != nil {
			return res, err
		}

	case ReqTAddOnNr:
		value, found, err := t.get(req.Key)
		if err != nil {
			return res, err
		}
		var current int64
		if found {
			if current, err = DecodeNumber(value); err != nil {
				res.Code, res.Msg = RetCInvalidOperation, err.Error()
				return res, nil
			}
		}
		if err := t.put(req.Key, EncodeNumber(current+req.Delta)); err != nil {
			return res, err
		}

	case ReqTAddDelOnList:
		current, ok, err := t.list(req.Key, &res)
		if err != nil || !ok {
			return res, err
		}
		if err := t.put(req.Key, EncodeList(ApplyListDelta(current, req.ToAdd, req.ToRemove))); err != nil {
			return res, err
		}

	case ReqTReadSublist:
		value, found, err := t.get(req.Key)
		if err != nil {
			return res, err
		}
		if !found {
			res.Code, res.Msg = RetCNotFound, "key not found"
			return res, nil
		}
		list, err := DecodeList(value)
		if err != nil {
			res.Code, res.Msg = RetCInvalidOperation, err.Error()
			return res, nil
		}
		res.Value = EncodeList(Sublist(list, req.Start, req.Count))
		res.Length = len(list)

	default:
		res.Code, res.Msg = RetCInvalidOperation, "unknown request type"
	}
	return res, nil
}

// list loads a key as a list (absent = empty). ok is false if the value is not a list,
// in which case res carries the failure.
func (t *OptimisticTx) list(key string, res *Result) ([]string, bool, error) {
	value, found, err := t.get(key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, true, nil
	}
	list, err := DecodeList(value)
	if err != nil {
		res.Code, res.Msg = RetCInvalidOperation, err.Error()
		return nil, false, nil
	}
	return list, true, nil
}

// Sublist returns count elements starting at start, clamped to the list bounds.
// A count <= 0 returns everything from start.
func Sublist(list []string, start, count int) []string {
	if start < 0 {
		start = 0
	}
	if start >= len(list) {
		return []string{}
	}
	end := len(list)
	if count > 0 && start+count < end {
		end = start + count
	}
	return list[start:end]
}
