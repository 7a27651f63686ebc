// Package store defines the contract between the operation executor and an optimistic,
// multi-key transactional key-value store, together with the types shared by every
// implementation of that contract.
//
// The package focuses on:
//   - A unified interface (ITxStore / ITransaction) for transactions across different backends
//   - Request and result lists that let many operations share one round trip
//   - A structured error taxonomy (RetCode) that separates benign, retryable and fatal failures
//
// Key Components:
//
//   - ITxStore / ITransaction: A transaction is driven in rounds. Each round submits a
//     RequestList and returns a ResultList with one result per request, in request order.
//     The last round of a transaction commits. Commit atomicity covers every request of
//     every round of the transaction.
//
//   - Requests: read, write, add-on-number (native increment), add-del-on-list (native set
//     update) and read-sublist (partial read of large lists).
//
//   - Error System: *Error carries a RetCode. NotFound is benign and turned into zero or the
//     empty list by the callers, ConflictAbort is retryable, everything else is fatal.
//     Errors compare by code with errors.Is.
//
//   - OptimisticTx: A reusable transaction implementation for local backends. Backends only
//     provide a VersionedLoader and a Committer, the request semantics live here.
//
// Implementations:
//
//	- Local Store (lstore): in-memory, versioned entries in a concurrent map.
//	  Available in the "github.com/ValentinKolb/opexec/lib/store/lstore" package.
//
//	- Bolt Store (bstore): durable store on top of a bbolt file.
//	  Available in the "github.com/ValentinKolb/opexec/lib/store/bstore" package.
//
//	- RPC Store: remote access to a served store.
//	  Available in the "github.com/ValentinKolb/opexec/rpc/client" package.
package store
