package executor

import (
	"fmt"
	"strings"
)

// OperationReport is the outcome of one front-end call of a batch.
type OperationReport struct {
	Description string
	Strategy    string
	// Targets are the physical keys touched in the last attempt
	Targets []string
	// Err is the error of the batch, there is no partial success
	Err error
}

// Report is the outcome of a batch.
type Report struct {
	Attempts   int
	Rounds     int // rounds of all attempts
	Operations []OperationReport
	Err        error
}

func newReport(b *Batch) *Report {
	r := &Report{Operations: make([]OperationReport, len(b.pending))}
	for i, p := range b.pending {
		r.Operations[i] = OperationReport{Description: p.description, Strategy: p.strategy.String()}
	}
	return r
}

func (r *Report) setTargets(targets [][]string) {
	for i := range r.Operations {
		r.Operations[i].Targets = targets[i]
	}
}

// fail records the error for the batch and all its operations.
func (r *Report) fail(err error) (*Report, error) {
	r.Err = err
	for i := range r.Operations {
		r.Operations[i].Err = err
	}
	return r, err
}

// Failed reports whether the batch failed.
func (r *Report) Failed() bool {
	return r.Err != nil
}

// String returns a formatted string representation of the report
func (r *Report) String() string {
	var sb strings.Builder

	status := "ok"
	if r.Err != nil {
		status = r.Err.Error()
	}
	sb.WriteString(fmt.Sprintf("batch: %s (attempts %d, rounds %d)\n", status, r.Attempts, r.Rounds))
	for i, op := range r.Operations {
		sb.WriteString(fmt.Sprintf("  %3d %-40s %-45s %v\n", i, op.Description, op.Strategy, op.Targets))
	}
	return sb.String()
}
