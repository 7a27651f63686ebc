// Package strategy holds the optimisation strategies and the table that binds one strategy
// to every kind of logical operation.
//
// Strategies:
//
//   - Traditional: read-then-write of the whole value, no native primitives.
//   - AppendIncrement: native add-on-number and add-del-on-list on one physical key.
//   - AppendIncrementPartialRead: AppendIncrement plus partial reads of large lists.
//   - Buckets: the logical key is split into Count physical keys, elements are assigned
//     randomly or by hash.
//   - WriteCache: mutations go to a designated write bucket which is merged into the
//     canonical key later.
//
// The Table is owned by the application and injected into the executor. It can be rebound
// at any time; a rebind only affects operations enqueued afterwards.
//
// Configuration strings use the syntax
//
//	ALL:APPEND_INCREMENT|page-list:APPEND_INCREMENT_BUCKETS_WITH_HASH(4)|page-count:TRADITIONAL
package strategy
