package ops

import (
	"fmt"

	"github.com/ValentinKolb/opexec/lib/store"
)

// WriteOp overwrites the value of a key. It needs no read and finishes in one round.
type WriteOp struct {
	Key   string
	Value []byte
}

func (o *WriteOp) WorkPhases() int { return 1 }

func (o *WriteOp) DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (int, error) {
	switch phase {
	case 0:
		requests.AddWrite(o.Key, o.Value)
		return 0, nil
	case 1:
		if err := results.ProcessWriteAt(firstResult); err != nil {
			return 0, unexpected(o, err)
		}
		return 1, nil
	default:
		return 0, badPhase(o, phase)
	}
}

func (o *WriteOp) String() string {
	return fmt.Sprintf("write(%s, %d bytes)", o.Key, len(o.Value))
}
