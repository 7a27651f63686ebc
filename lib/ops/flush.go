package ops

import (
	"fmt"

	"github.com/ValentinKolb/opexec/lib/store"
)

// FlushWriteCacheOp merges the write buckets of a list into its canonical key and empties
// them. If CounterKey is set the counter write buckets are merged into CounterKey as well.
// Only non-empty write buckets are rewritten.
type FlushWriteCacheOp struct {
	Key              string
	WriteKeys        []string
	Markers          bool
	CounterKey       string
	CounterWriteKeys []string

	// Flushed is the number of write bucket entries merged into the canonical list
	Flushed int

	writes int
}

func (o *FlushWriteCacheOp) WorkPhases() int { return 2 }

func (o *FlushWriteCacheOp) reads() int {
	n := 1 + len(o.WriteKeys)
	if o.CounterKey != "" {
		n += 1 + len(o.CounterWriteKeys)
	}
	return n
}

func (o *FlushWriteCacheOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		requests.AddRead(o.Key)
		for _, k := range o.WriteKeys {
			requests.AddRead(k)
		}
		if o.CounterKey != "" {
			requests.AddRead(o.CounterKey)
			for _, k := range o.CounterWriteKeys {
				requests.AddRead(k)
			}
		}
		return 0, nil
	case 1:
		o.writes, o.Flushed = 0, 0
		if err := o.flushList(firstResult, results, requests); err != nil {
			return 0, err
		}
		if o.CounterKey != "" {
			if err := o.flushCounter(firstResult+1+len(o.WriteKeys), results, requests); err != nil {
				return 0, err
			}
		}
		return o.reads(), nil
	case 2:
		for i := 0; i < o.writes; i++ {
			if err := results.ProcessWriteAt(firstResult + i); err != nil {
				return 0, unexpected(o, err)
			}
		}
		return o.writes, nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *FlushWriteCacheOp) flushList(first int, results *store.ResultList, requests *store.RequestList) error {
	lists, err := readLists(o, results, first, 1+len(o.WriteKeys))
	if err != nil {
		return err
	}
	for _, w := range lists[1:] {
		o.Flushed += len(w)
	}
	if o.Flushed == 0 {
		return nil
	}

	merged, err := mergeLists(lists[:1], lists[1:], o.Markers)
	if err != nil {
		return unexpected(o, err)
	}
	requests.AddWrite(o.Key, store.EncodeList(merged))
	o.writes++
	for i, w := range lists[1:] {
		if len(w) > 0 {
			requests.AddWrite(o.WriteKeys[i], store.EncodeList(nil))
			o.writes++
		}
	}
	return nil
}

func (o *FlushWriteCacheOp) flushCounter(first int, results *store.ResultList, requests *store.RequestList) error {
	total, _, err := results.ProcessReadNumberAt(first)
	if err != nil {
		return unexpected(o, err)
	}
	parts := make([]int64, len(o.CounterWriteKeys))
	pending := false
	for i := range parts {
		if parts[i], _, err = results.ProcessReadNumberAt(first + 1 + i); err != nil {
			return unexpected(o, err)
		}
		total += parts[i]
		pending = pending || parts[i] != 0
	}
	if !pending {
		return nil
	}

	requests.AddWrite(o.CounterKey, store.EncodeNumber(total))
	o.writes++
	for i, part := range parts {
		if part != 0 {
			requests.AddWrite(o.CounterWriteKeys[i], store.EncodeNumber(0))
			o.writes++
		}
	}
	return nil
}

func (o *FlushWriteCacheOp) String() string {
	return fmt.Sprintf("flush-write-cache(%s, %v)", o.Key, o.WriteKeys)
}
