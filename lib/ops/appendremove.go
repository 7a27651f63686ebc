package ops

import (
	"fmt"

	"github.com/ValentinKolb/opexec/lib/store"
)

// --------------------------------------------------------------------------
// Read-modify-write list update
// --------------------------------------------------------------------------

// AppendRemoveOp updates a list by reading it in the first round and writing
// (current without ToRemove) plus ToAdd in the second. If CounterKey is set the new
// length of the list is written to it as well.
type AppendRemoveOp struct {
	Key        string
	ToAdd      []string
	ToRemove   []string
	CounterKey string

	// Written is the list written in the second round
	Written []string
}

func (o *AppendRemoveOp) WorkPhases() int { return 2 }

func (o *AppendRemoveOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		requests.AddRead(o.Key)
		return 0, nil
	case 1:
		current, _, err := results.ProcessReadListAt(firstResult)
		if err != nil {
			return 0, unexpected(o, err)
		}
		o.Written = store.ApplyListDelta(current, o.ToAdd, o.ToRemove)
		requests.AddWrite(o.Key, store.EncodeList(o.Written))
		if o.CounterKey != "" {
			requests.AddWrite(o.CounterKey, store.EncodeNumber(int64(len(o.Written))))
		}
		return 1, nil
	case 2:
		if err := results.ProcessWriteAt(firstResult); err != nil {
			return 0, unexpected(o, err)
		}
		if o.CounterKey == "" {
			return 1, nil
		}
		if err := results.ProcessWriteAt(firstResult + 1); err != nil {
			return 0, unexpected(o, err)
		}
		return 2, nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *AppendRemoveOp) String() string {
	return fmt.Sprintf("append-remove(%s, +%v, -%v)", o.Key, o.ToAdd, o.ToRemove)
}

// --------------------------------------------------------------------------
// Native list update
// --------------------------------------------------------------------------

// NativeAppendRemoveOp updates a list with the add-del-on-list primitive of the store.
// If CounterKey is set and CounterDelta is not zero the counter is updated with
// add-on-number in the same round.
type NativeAppendRemoveOp struct {
	Key          string
	ToAdd        []string
	ToRemove     []string
	CounterKey   string
	CounterDelta int64
}

func (o *NativeAppendRemoveOp) WorkPhases() int { return 1 }

func (o *NativeAppendRemoveOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		requests.AddAddDelOnList(o.Key, o.ToAdd, o.ToRemove)
		if o.updatesCounter() {
			requests.AddAddOnNr(o.CounterKey, o.CounterDelta)
		}
		return 0, nil
	case 1:
		if err := results.ProcessAddDelOnListAt(firstResult); err != nil {
			return 0, unexpected(o, err)
		}
		if !o.updatesCounter() {
			return 1, nil
		}
		if err := results.ProcessAddOnNrAt(firstResult + 1); err != nil {
			return 0, unexpected(o, err)
		}
		return 2, nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *NativeAppendRemoveOp) updatesCounter() bool {
	return o.CounterKey != "" && o.CounterDelta != 0
}

func (o *NativeAppendRemoveOp) String() string {
	if o.updatesCounter() {
		return fmt.Sprintf("native-append-remove(%s, +%v, -%v, %s%+d)", o.Key, o.ToAdd, o.ToRemove, o.CounterKey, o.CounterDelta)
	}
	return fmt.Sprintf("native-append-remove(%s, +%v, -%v)", o.Key, o.ToAdd, o.ToRemove)
}
