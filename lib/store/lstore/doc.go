// Package lstore implements a local, in-memory, single-node transactional key-value store
// based on the store.ITxStore interface. Data is stored entirely in memory and is not
// persisted between process restarts.
//
// Key Features:
//   - Pure in-memory storage without persistence
//   - Optimistic transactions with version validation on commit
//   - Lock-free reads, commits are serialized by a single mutex
//
// Implementation Details:
//
//   - Write Index Management: The store maintains an atomic counter that increments with
//     each committing transaction. Every entry remembers the index of the commit that wrote
//     it, which serves as the version used for optimistic validation.
//
//   - Validation: A transaction records the version of every key on first touch. On commit
//     all recorded versions are compared with the current ones. Any difference aborts the
//     transaction with store.RetCConflictAbort and nothing is applied.
//
// Thread Safety:
//
//	All operations of the store are thread-safe. A single transaction is not and must be
//	used by one goroutine only.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	tx, _ := s.Begin(ctx)
//	reqs := store.NewRequestList()
//	reqs.AddAddOnNr("visits", 1)
//	_, err := tx.Exec(ctx, reqs, true)
//
// Suitable Use Cases:
//
//	The local store is ideal for tests, single process applications and as the default
//	shard type of the opexec server.
package lstore
