package store

import "context"

// ReadValue reads a single key in its own transaction. The boolean return value
// indicates whether a value for the key was found.
func ReadValue(ctx context.Context, s ITxStore, key string) ([]byte, bool, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Abort() }()

	reqs := NewRequestList()
	reqs.AddRead(key)
	results, err := tx.Exec(ctx, reqs, false)
	if err != nil {
		return nil, false, err
	}
	value, err := results.ProcessReadAt(0)
	if CodeOf(err) == RetCNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return value, true, nil
}
