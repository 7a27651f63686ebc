// Package coalesce merges the pending mutations of a batch into one mutation per physical key.
//
// Every element of a list mutation is resolved to its bucket, then grouped by physical key in
// order of arrival. Per element only the last pending mutation survives: adding an element that
// has a pending remove (or the other way round) cancels both.
//
// Under the replicated write cache the write bucket holds markers, and the last mutation of an
// element always survives: a last add of e is sent as "+e" and a last remove as "-e", both in the
// add-set. Every add also sends "-e" and every remove "+e" in the remove-set, which cancels a
// marker left in the write bucket by an earlier batch. A marker is never part of both sets.
//
// Random buckets are checked against every bucket they could be mapped to, so a batch that was
// accepted is accepted again when its buckets are drawn anew.
//
// The add-only write caches store plain elements and reject removals.
//
// Increments of the same physical key are summed, writes of the same key keep the last value.
// Using one physical key in two incompatible ways in the same batch (for example as a traditional
// and a native list, or as a list with two different counter keys) is rejected with
// store.RetCUnsupportedOperation before anything is sent to the store.
package coalesce
