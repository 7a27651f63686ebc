package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/opexec/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	TxID     string          `json:"tx_id,omitempty"`    // Used for: Begin (response), Exec, Abort
	Commit   bool            `json:"commit,omitempty"`   // Used for: Exec (request)
	Requests []store.Request `json:"requests,omitempty"` // Used for: Exec (request)

	// Response only fields
	Results []store.Result `json:"results,omitempty"` // Used for: Exec (response)
	Code    store.RetCode  `json:"code,omitempty"`    // Return code of the call, RetCSuccess if no error
	Err     string         `json:"err,omitempty"`     // Empty if no error, otherwise contains the error message
}

// Error converts the code and message of a response into a store error (nil on success).
func (m *Message) Error() error {
	if m.Code == store.RetCSuccess && m.Err == "" {
		return nil
	}
	code := m.Code
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// setErr stores err in the message
func (m *Message) setErr(err error) {
	if err != nil {
		m.Code = store.CodeOf(err)
		m.Err = err.Error()
	}
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewBeginRequest creates a new Begin request
func NewBeginRequest() *Message {
	return &Message{
		MsgType: MsgTTxBegin,
	}
}

// NewBeginResponse creates a new Begin response
func NewBeginResponse(txID string, err error) *Message {
	msg := &Message{
		MsgType: MsgTTxBegin,
		TxID:    txID,
	}
	msg.setErr(err)
	return msg
}

// NewExecRequest creates a new Exec request
func NewExecRequest(txID string, reqs *store.RequestList, commit bool) *Message {
	return &Message{
		MsgType:  MsgTTxExec,
		TxID:     txID,
		Commit:   commit,
		Requests: reqs.Requests(),
	}
}

// NewExecResponse creates a new Exec response. The results are sent even if err is set,
// since a failed commit still reports the per-request outcome.
func NewExecResponse(txID string, results *store.ResultList, err error) *Message {
	msg := &Message{
		MsgType: MsgTTxExec,
		TxID:    txID,
	}
	if results != nil {
		msg.Results = results.Results()
	}
	msg.setErr(err)
	return msg
}

// NewAbortRequest creates a new Abort request
func NewAbortRequest(txID string) *Message {
	return &Message{
		MsgType: MsgTTxAbort,
		TxID:    txID,
	}
}

// NewAbortResponse creates a new Abort response
func NewAbortResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTTxAbort,
	}
	msg.setErr(err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code store.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTTxBegin:
		return "begin"
	case MsgTTxExec:
		return "exec"
	case MsgTTxAbort:
		return "abort"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "begin":
		*t = MsgTTxBegin
	case "exec":
		*t = MsgTTxExec
	case "abort":
		*t = MsgTTxAbort
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ITxStore operations

	MsgTTxBegin // Begin a transaction
	MsgTTxExec  // Execute one round of a transaction
	MsgTTxAbort // Abort a transaction
)
