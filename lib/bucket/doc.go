// Package bucket resolves logical keys to the physical keys a mutation targets.
//
// Buckets strategies append ":<i>" to the logical key, where i is chosen randomly or by
// hashing the element (FNV-1a). A bucket count of one or less never adds a suffix.
// WriteCache strategies send every mutation to a write bucket (":w", or ":w<i>" for the
// random add-only mode) while the logical key itself stays the canonical bucket.
//
// Counter keys always get the same suffix as the data key, so the counter of a bucket lives
// next to the bucket's data.
package bucket
