// Package ops contains the phased operations executed by the batch executor.
//
// An operation is a small state machine: in every phase it consumes its results of the
// previous round and appends the requests of the next one. Operations never see each other,
// they only get the position of their first result in the shared result list and report how
// many results they consumed. This lets the executor pack the requests of many operations into
// one round trip per phase.
//
// Round counts:
//
//	WriteOp, NativeIncrementOp, NativeAppendRemoveOp, ReadNumberOp, ReadListOp   1
//	IncrementOp, AppendRemoveOp, FlushWriteCacheOp                              2
//
// The acknowledgements of the last round are consumed in an extra call without a further round.
//
// Any result that does not fit the emitted requests (wrong type, failed request, undecodable
// value) is reported as an error with code store.RetCBackendFailure. A read of a missing key is
// never an error: numbers default to zero and lists to the empty list.
package ops
