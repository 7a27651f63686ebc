// Package bstore implements a durable, single-node transactional key-value store on top of
// a bbolt database file.
//
// Every value is stored with an 8 byte big-endian version prefix. Reads run in bolt read
// transactions, the buffered writes of an optimistic transaction are validated and applied
// inside one bolt write transaction, so validation and apply are atomic.
package bstore
