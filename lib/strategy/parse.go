package strategy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	nameTraditional         = "TRADITIONAL"
	nameAppendIncrement     = "APPEND_INCREMENT"
	namePartialRead         = "APPEND_INCREMENT_PARTIALREAD"
	nameBucketsRandom       = "APPEND_INCREMENT_BUCKETS_RANDOM"
	nameBucketsHash         = "APPEND_INCREMENT_BUCKETS_WITH_HASH"
	nameWCache              = "APPEND_INCREMENT_BUCKETS_WITH_WCACHE"
	nameWCacheAddOnly       = "APPEND_INCREMENT_BUCKETS_WITH_WCACHE_ADDONLY"
	nameWCacheAddOnlyRandom = "APPEND_INCREMENT_BUCKETS_WITH_WCACHE_ADDONLY_RANDOM"

	// AllOps binds a strategy to every operation type
	AllOps = "ALL"
)

var (
	singleBinding  = regexp.MustCompile(`^([a-zA-Z_0-9-]+):([a-zA-Z_0-9]+)(?:\(([0-9,\s]*)\))?$`)
	singleStrategy = regexp.MustCompile(`^([a-zA-Z_0-9]+)(?:\(([0-9,\s]*)\))?$`)
)

// Binding is one parsed entry of a strategy configuration string.
type Binding struct {
	Op       OpType
	Strategy IStrategy
}

// ParseConfig parses a configuration of the form "OP:STRATEGY(params)|OP:STRATEGY|...".
// The operation type ALL binds the strategy to every operation type.
func ParseConfig(config string) ([]Binding, error) {
	var bindings []Binding
	for _, single := range strings.Split(config, "|") {
		single = strings.TrimSpace(single)
		if single == "" {
			continue
		}
		m := singleBinding.FindStringSubmatch(single)
		if m == nil {
			return nil, fmt.Errorf("invalid strategy binding %q (expected OP:STRATEGY(params))", single)
		}
		s, err := newStrategy(m[2], m[3], strings.Contains(single, "("))
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", single, err)
		}
		bindings = append(bindings, Binding{Op: OpType(m[1]), Strategy: s})
	}
	return bindings, nil
}

// Apply parses config and binds every entry to the table, in order.
// Nothing is bound if the configuration is invalid.
func (t *Table) Apply(config string) error {
	bindings, err := ParseConfig(config)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		if b.Op == AllOps {
			t.BindAll(b.Strategy)
		} else {
			t.Bind(b.Op, b.Strategy)
		}
	}
	return nil
}

// Parse parses a single strategy, e.g. "APPEND_INCREMENT_BUCKETS_WITH_HASH(4)".
func Parse(s string) (IStrategy, error) {
	s = strings.TrimSpace(s)
	m := singleStrategy.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("invalid strategy %q", s)
	}
	return newStrategy(m[1], m[2], strings.Contains(s, "("))
}

func newStrategy(name, params string, hasParams bool) (IStrategy, error) {
	var values []int
	if hasParams {
		for _, p := range strings.Split(params, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid parameter %q: %w", p, err)
			}
			values = append(values, n)
		}
	}

	noParams := func(s IStrategy) (IStrategy, error) {
		if len(values) != 0 {
			return nil, fmt.Errorf("%s takes no parameters", name)
		}
		return s, nil
	}
	count := func(required bool) (int, error) {
		switch {
		case len(values) == 0 && !required:
			return 0, nil
		case len(values) != 1:
			return 0, fmt.Errorf("%s expects exactly one parameter (number of buckets)", name)
		case values[0] < 1:
			return 0, fmt.Errorf("%s: number of buckets must be positive, got %d", name, values[0])
		}
		return values[0], nil
	}

	switch name {
	case nameTraditional:
		return noParams(Traditional{})
	case nameAppendIncrement:
		return noParams(AppendIncrement{})
	case namePartialRead:
		return noParams(AppendIncrementPartialRead{})
	case nameBucketsRandom, nameBucketsHash:
		n, err := count(true)
		if err != nil {
			return nil, err
		}
		assignment := AssignRandom
		if name == nameBucketsHash {
			assignment = AssignHashOfValue
		}
		return Buckets{Count: n, Assignment: assignment}, nil
	case nameWCache, nameWCacheAddOnly:
		n, err := count(false)
		if err != nil {
			return nil, err
		}
		mode := ModeReplicated
		if name == nameWCacheAddOnly {
			mode = ModeAddOnly
		}
		return WriteCache{Mode: mode, Count: n}, nil
	case nameWCacheAddOnlyRandom:
		n, err := count(true)
		if err != nil {
			return nil, err
		}
		return WriteCache{Mode: ModeAddOnlyRandom, Count: n}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
