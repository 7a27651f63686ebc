package bucket

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// Hash generates a hash value for a string.
// This function uses the FNV-1a hash algorithm, which is fast and has good distribution
func Hash(s string) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64)
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// Index returns the bucket of a value for n buckets, always in [0, n).
// n must be positive.
func Index(value string, n int) int {
	return int(Hash(value) % uint64(n))
}
