package ops

import (
	"fmt"

	"github.com/ValentinKolb/opexec/lib/store"
)

// --------------------------------------------------------------------------
// Number read
// --------------------------------------------------------------------------

// ReadNumberOp reads a number spread over several buckets and sums the parts.
// Missing buckets count as zero.
type ReadNumberOp struct {
	Keys []string

	// Value is the sum of all buckets, Found reports whether any bucket existed
	Value int64
	Found bool
}

func (o *ReadNumberOp) WorkPhases() int { return 1 }

func (o *ReadNumberOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		for _, k := range o.Keys {
			requests.AddRead(k)
		}
		return 0, nil
	case 1:
		o.Value, o.Found = 0, false
		for i := range o.Keys {
			n, found, err := results.ProcessReadNumberAt(firstResult + i)
			if err != nil {
				return 0, unexpected(o, err)
			}
			o.Value += n
			o.Found = o.Found || found
		}
		return len(o.Keys), nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *ReadNumberOp) String() string {
	return fmt.Sprintf("read-number(%v)", o.Keys)
}

// --------------------------------------------------------------------------
// List read
// --------------------------------------------------------------------------

// ReadListOp reads a list spread over data buckets and write buckets.
// If Partial is set, Limit is positive and the list lives in one key without write buckets,
// only the first Limit elements are transferred.
type ReadListOp struct {
	DataKeys  []string
	WriteKeys []string
	Markers   bool
	Partial   bool
	Limit     int

	// Values holds at most Limit elements (all if Limit <= 0), Total the full length
	Values []string
	Total  int
}

func (o *ReadListOp) WorkPhases() int { return 1 }

func (o *ReadListOp) partial() bool {
	return o.Partial && o.Limit > 0 && len(o.DataKeys) == 1 && len(o.WriteKeys) == 0
}

func (o *ReadListOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		if o.partial() {
			requests.AddReadSublist(o.DataKeys[0], 0, o.Limit)
			return 0, nil
		}
		for _, k := range o.DataKeys {
			requests.AddRead(k)
		}
		for _, k := range o.WriteKeys {
			requests.AddRead(k)
		}
		return 0, nil
	case 1:
		if o.partial() {
			values, total, err := results.ProcessReadSublistAt(firstResult)
			if err != nil {
				return 0, unexpected(o, err)
			}
			if values == nil {
				values = []string{}
			}
			o.Values, o.Total = values, total
			return 1, nil
		}

		lists, err := readLists(o, results, firstResult, len(o.DataKeys)+len(o.WriteKeys))
		if err != nil {
			return 0, err
		}
		merged, err := mergeLists(lists[:len(o.DataKeys)], lists[len(o.DataKeys):], o.Markers)
		if err != nil {
			return 0, unexpected(o, err)
		}
		o.Total = len(merged)
		if o.Limit > 0 && len(merged) > o.Limit {
			merged = merged[:o.Limit]
		}
		o.Values = merged
		return len(lists), nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *ReadListOp) String() string {
	if len(o.WriteKeys) == 0 {
		return fmt.Sprintf("read-list(%v)", o.DataKeys)
	}
	return fmt.Sprintf("read-list(%v, write buckets %v)", o.DataKeys, o.WriteKeys)
}

// readLists decodes n consecutive list reads. Missing keys are empty lists.
func readLists(op IOperation, results *store.ResultList, first, n int) ([][]string, error) {
	lists := make([][]string, n)
	for i := range lists {
		list, _, err := results.ProcessReadListAt(first + i)
		if err != nil {
			return nil, unexpected(op, err)
		}
		lists[i] = list
	}
	return lists, nil
}
