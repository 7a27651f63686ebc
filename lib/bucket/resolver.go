package bucket

import (
	"math/rand/v2"
	"strconv"

	"github.com/ValentinKolb/opexec/lib/strategy"
)

const (
	// writeSuffix is the suffix of the write bucket of a write-cached key
	writeSuffix = ":w"
)

// Target is the physical location of one mutated element.
type Target struct {
	Key        string // physical data key
	CounterKey string // physical counter key, empty if no counter key was given
	Suffix     string // suffix appended to both keys
}

// Resolver maps logical keys to physical keys. It is safe for concurrent use
// as long as the random source is.
type Resolver struct {
	intn func(n int) int
}

// NewResolver creates a resolver that uses math/rand/v2 for random assignments.
func NewResolver() *Resolver {
	return NewResolverWithSource(rand.IntN)
}

// NewResolverWithSource creates a resolver with a custom random source.
// intn must return a value in [0, n).
func NewResolverWithSource(intn func(n int) int) *Resolver {
	return &Resolver{intn: intn}
}

// Suffix returns the suffix that is appended to the logical key for an element.
// The same element may map to different suffixes for the random strategies.
func (r *Resolver) Suffix(s strategy.IStrategy, value string) string {
	switch st := s.(type) {
	case strategy.Buckets:
		if st.Count <= 1 {
			return ""
		}
		if st.Assignment == strategy.AssignHashOfValue {
			return ":" + strconv.Itoa(Index(value, st.Count))
		}
		return ":" + strconv.Itoa(r.intn(st.Count))
	case strategy.WriteCache:
		if st.Mode == strategy.ModeAddOnlyRandom && st.Count > 1 {
			return writeSuffix + strconv.Itoa(r.intn(st.Count))
		}
		return writeSuffix
	default:
		return ""
	}
}

// Map resolves the physical target of one element. The counter key gets the same
// suffix as the data key.
func (r *Resolver) Map(s strategy.IStrategy, key, value, counterKey string) Target {
	suffix := r.Suffix(s, value)
	t := Target{Key: key + suffix, Suffix: suffix}
	if counterKey != "" {
		t.CounterKey = counterKey + suffix
	}
	return t
}

// Candidates returns every target an element may be mapped to by Map. It has a single entry
// unless the strategy picks buckets at random.
func (r *Resolver) Candidates(s strategy.IStrategy, key, value, counterKey string) []Target {
	var suffixes []string
	switch st := s.(type) {
	case strategy.Buckets:
		if st.Count > 1 && st.Assignment != strategy.AssignHashOfValue {
			for i := 0; i < st.Count; i++ {
				suffixes = append(suffixes, ":"+strconv.Itoa(i))
			}
		}
	case strategy.WriteCache:
		if st.Mode == strategy.ModeAddOnlyRandom && st.Count > 1 {
			for i := 0; i < st.Count; i++ {
				suffixes = append(suffixes, writeSuffix+strconv.Itoa(i))
			}
		}
	}
	if suffixes == nil {
		suffixes = []string{r.Suffix(s, value)}
	}

	targets := make([]Target, len(suffixes))
	for i, suffix := range suffixes {
		targets[i] = Target{Key: key + suffix, Suffix: suffix}
		if counterKey != "" {
			targets[i].CounterKey = counterKey + suffix
		}
	}
	return targets
}

// MapIncrement resolves the physical key of an increment. The decimal text
// of the delta is used as the element value.
func (r *Resolver) MapIncrement(s strategy.IStrategy, key string, delta int64) string {
	return key + r.Suffix(s, strconv.FormatInt(delta, 10))
}

// --------------------------------------------------------------------------
// Bucket enumeration
// --------------------------------------------------------------------------

// Keys returns every physical key that holds data of a logical key, the canonical
// key first. Write buckets are included, see WriteKeys.
func Keys(s strategy.IStrategy, key string) []string {
	switch st := s.(type) {
	case strategy.Buckets:
		if st.Count <= 1 {
			return []string{key}
		}
		keys := make([]string, st.Count)
		for i := range keys {
			keys[i] = key + ":" + strconv.Itoa(i)
		}
		return keys
	case strategy.WriteCache:
		return append([]string{key}, WriteKeys(s, key)...)
	default:
		return []string{key}
	}
}

// DataKeys returns the physical keys of a logical key without its write buckets.
func DataKeys(s strategy.IStrategy, key string) []string {
	if _, ok := s.(strategy.WriteCache); ok {
		return []string{key}
	}
	return Keys(s, key)
}

// WriteKeys returns the write buckets of a logical key. It is empty for every
// strategy except WriteCache.
func WriteKeys(s strategy.IStrategy, key string) []string {
	st, ok := s.(strategy.WriteCache)
	if !ok {
		return nil
	}
	if st.Mode == strategy.ModeAddOnlyRandom && st.Count > 1 {
		keys := make([]string, st.Count)
		for i := range keys {
			keys[i] = key + writeSuffix + strconv.Itoa(i)
		}
		return keys
	}
	return []string{key + writeSuffix}
}
