package store

import (
	"context"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ITxStore is the interface of an optimistic, multi-key transactional key–value store.
// Implementations only need to provide transactions, everything else is built on top of them.
type ITxStore interface {
	// Begin starts a new optimistic transaction.
	Begin(ctx context.Context) (tx ITransaction, err error)
}

// ITransaction is a single optimistic transaction attempt.
// A transaction is used by exactly one caller and must not be shared between goroutines.
type ITransaction interface {
	// Exec submits all requests as one round trip. The requests are applied in list order to the
	// private view of the transaction, so reads observe earlier writes of the same transaction.
	// If commit is true the transaction is validated and committed after the round was applied.
	// A failed validation returns an error with code RetCConflictAbort and nothing is applied.
	// If any request of a committing round failed (other than a read that found nothing) the
	// transaction is aborted and an error with code RetCInvalidOperation is returned together
	// with the results of the round.
	Exec(ctx context.Context, reqs *RequestList, commit bool) (results *ResultList, err error)
	// Abort discards the transaction. Calling Abort on a finished transaction is a no-op.
	Abort() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("TxStoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a *Error with the same code.
// This allows errors.Is(err, store.ErrConflictAbort) to match any conflict.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new TxStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new TxStoreError with the given code and a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the RetCode carried by err, RetCSuccess for nil and
// RetCInternalError for errors that are not a *Error.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// Sentinel errors, compare with errors.Is.
var (
	ErrNotFound             = NewError(RetCNotFound, "not found")
	ErrConflictAbort        = NewError(RetCConflictAbort, "transaction aborted due to a conflict")
	ErrUnsupportedOperation = NewError(RetCUnsupportedOperation, "unsupported operation")
	ErrBackendFailure       = NewError(RetCBackendFailure, "backend failure")
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported (e.g. by the chosen strategy).
	RetCInvalidOperation                    // 3: Invalid operation (e.g. a number primitive on a list).
	RetCNotFound                            // 4: No value stored for the key.
	RetCConflictAbort                       // 5: Optimistic validation failed, the transaction was aborted.
	RetCBackendFailure                      // 6: Malformed or unexpected response of the store.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCConflictAbort:
		return "ConflictAbort"
	case RetCBackendFailure:
		return "BackendFailure"
	default:
		return "Unknown"
	}
}

// Retryable reports whether an error with this code may succeed when the whole batch is retried.
func (c RetCode) Retryable() bool {
	return c == RetCConflictAbort
}
