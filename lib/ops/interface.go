package ops

import (
	"github.com/ValentinKolb/opexec/lib/store"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IOperation is one phased operation. All operations of a batch share the request and
// result lists of every round; each operation only knows where its own results start.
//
// The executor calls DoPhase for phase = 0 .. WorkPhases(). In phase p the operation
// consumes its results of round p-1 (there are none for p = 0) starting at firstResult
// and appends the requests of round p. The last call (p = WorkPhases()) only consumes.
type IOperation interface {
	// WorkPhases returns the number of rounds the operation emits requests in.
	WorkPhases() int
	// DoPhase consumes the results of the previous round, emits the requests of this round
	// and returns the number of consumed results.
	DoPhase(phase, firstResult int, results *store.ResultList, requests *store.RequestList) (consumed int, err error)
	// String describes the operation for logs and reports.
	String() string
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// unexpected reports an error of a result that should have succeeded.
func unexpected(op IOperation, err error) error {
	return store.Errorf(store.RetCBackendFailure, "%s: unexpected result: %v", op, err)
}

// badPhase reports a phase outside of [0, WorkPhases].
func badPhase(op IOperation, phase int) error {
	return store.Errorf(store.RetCInternalError, "%s: invalid phase %d", op, phase)
}
