package ops

import (
	"fmt"

	"github.com/ValentinKolb/opexec/lib/store"
)

// --------------------------------------------------------------------------
// Read-modify-write increment
// --------------------------------------------------------------------------

// IncrementOp adds Delta to a number with a read in the first and a write in the second
// round. A missing number counts as zero. The read and the write are only atomic because
// both rounds belong to the same transaction.
type IncrementOp struct {
	Key   string
	Delta int64

	// Written is the value written in the second round
	Written int64
}

func (o *IncrementOp) WorkPhases() int { return 2 }

func (o *IncrementOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		requests.AddRead(o.Key)
		return 0, nil
	case 1:
		current, _, err := results.ProcessReadNumberAt(firstResult)
		if err != nil {
			return 0, unexpected(o, err)
		}
		o.Written = current + o.Delta
		requests.AddWrite(o.Key, store.EncodeNumber(o.Written))
		return 1, nil
	case 2:
		if err := results.ProcessWriteAt(firstResult); err != nil {
			return 0, unexpected(o, err)
		}
		return 1, nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *IncrementOp) String() string {
	return fmt.Sprintf("increment(%s, %+d)", o.Key, o.Delta)
}

// --------------------------------------------------------------------------
// Native increment
// --------------------------------------------------------------------------

// NativeIncrementOp adds Delta to a number with the add-on-number primitive of the store.
type NativeIncrementOp struct {
	Key   string
	Delta int64
}

func (o *NativeIncrementOp) WorkPhases() int { return 1 }

func (o *NativeIncrementOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		requests.AddAddOnNr(o.Key, o.Delta)
		return 0, nil
	case 1:
		if err := results.ProcessAddOnNrAt(firstResult); err != nil {
			return 0, unexpected(o, err)
		}
		return 1, nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *NativeIncrementOp) String() string {
	return fmt.Sprintf("native-increment(%s, %+d)", o.Key, o.Delta)
}
