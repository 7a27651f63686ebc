package store

import "fmt"

// --------------------------------------------------------------------------
// Request Types
// --------------------------------------------------------------------------

// RequestType defines the kind of a single request inside a round.
type RequestType uint8

const (
	ReqTUnknown      RequestType = iota
	ReqTRead                     // Read the full value of a key
	ReqTWrite                    // Overwrite the value of a key
	ReqTAddOnNr                  // Add a delta to a number (absent = 0)
	ReqTAddDelOnList             // Remove then add elements of a list (absent = empty)
	ReqTReadSublist              // Read a slice of a list plus its full length
)

// String returns the string representation of a RequestType.
func (t RequestType) String() string {
	switch t {
	case ReqTRead:
		return "read"
	case ReqTWrite:
		return "write"
	case ReqTAddOnNr:
		return "add_on_nr"
	case ReqTAddDelOnList:
		return "add_del_on_list"
	case ReqTReadSublist:
		return "read_sublist"
	default:
		return "unknown"
	}
}

// Request is a single request sent to the store.
// Which fields are used depends on the type of the request.
type Request struct {
	Type     RequestType `json:"type"`
	Key      string      `json:"key"`
	Value    []byte      `json:"value,omitempty"`     // Used for: Write
	Delta    int64       `json:"delta,omitempty"`     // Used for: AddOnNr
	ToAdd    []string    `json:"to_add,omitempty"`    // Used for: AddDelOnList
	ToRemove []string    `json:"to_remove,omitempty"` // Used for: AddDelOnList
	Start    int         `json:"start,omitempty"`     // Used for: ReadSublist
	Count    int         `json:"count,omitempty"`     // Used for: ReadSublist
}

func (r Request) String() string {
	switch r.Type {
	case ReqTWrite:
		return fmt.Sprintf("%s(%s, %d bytes)", r.Type, r.Key, len(r.Value))
	case ReqTAddOnNr:
		return fmt.Sprintf("%s(%s, %d)", r.Type, r.Key, r.Delta)
	case ReqTAddDelOnList:
		return fmt.Sprintf("%s(%s, +%v, -%v)", r.Type, r.Key, r.ToAdd, r.ToRemove)
	case ReqTReadSublist:
		return fmt.Sprintf("%s(%s, %d, %d)", r.Type, r.Key, r.Start, r.Count)
	default:
		return fmt.Sprintf("%s(%s)", r.Type, r.Key)
	}
}

// RequestList collects the requests of one round. Operations append to a shared list
// without knowing about each other; the position of a request equals the position
// of its result in the ResultList returned for the round.
type RequestList struct {
	requests []Request
}

// NewRequestList creates an empty request list.
func NewRequestList() *RequestList {
	return &RequestList{}
}

// NewRequestListOf wraps already built requests (used by transports).
func NewRequestListOf(requests []Request) *RequestList {
	return &RequestList{requests: requests}
}

func (l *RequestList) AddRead(key string) {
	l.requests = append(l.requests, Request{Type: ReqTRead, Key: key})
}

func (l *RequestList) AddWrite(key string, value []byte) {
	l.requests = append(l.requests, Request{Type: ReqTWrite, Key: key, Value: value})
}

func (l *RequestList) AddAddOnNr(key string, delta int64) {
	l.requests = append(l.requests, Request{Type: ReqTAddOnNr, Key: key, Delta: delta})
}

func (l *RequestList) AddAddDelOnList(key string, toAdd, toRemove []string) {
	l.requests = append(l.requests, Request{Type: ReqTAddDelOnList, Key: key, ToAdd: toAdd, ToRemove: toRemove})
}

func (l *RequestList) AddReadSublist(key string, start, count int) {
	l.requests = append(l.requests, Request{Type: ReqTReadSublist, Key: key, Start: start, Count: count})
}

// Size returns the number of requests in the list.
func (l *RequestList) Size() int {
	return len(l.requests)
}

// Requests returns the underlying requests. The slice must not be modified.
func (l *RequestList) Requests() []Request {
	return l.requests
}

// --------------------------------------------------------------------------
// Results
// --------------------------------------------------------------------------

// Result is the outcome of a single request.
type Result struct {
	Type   RequestType `json:"type"`
	Code   RetCode     `json:"code,omitempty"`
	Msg    string      `json:"msg,omitempty"`
	Value  []byte      `json:"value,omitempty"`  // Used for: Read, ReadSublist (encoded sub list)
	Length int         `json:"length,omitempty"` // Used for: ReadSublist (length of the full list)
}

// Err returns the error carried by the result or nil on success.
func (r Result) Err() error {
	if r.Code == RetCSuccess {
		return nil
	}
	return NewError(r.Code, r.Msg)
}

// ResultList holds the results of one round in request order.
type ResultList struct {
	results []Result
}

// NewResultList wraps the results of a round.
func NewResultList(results []Result) *ResultList {
	return &ResultList{results: results}
}

// Size returns the number of results in the list.
func (l *ResultList) Size() int {
	if l == nil {
		return 0
	}
	return len(l.results)
}

// Results returns the underlying results. The slice must not be modified.
func (l *ResultList) Results() []Result {
	if l == nil {
		return nil
	}
	return l.results
}

// at returns the result at the given position and verifies its type.
// Any mismatch means the response does not fit the requests and is reported as a backend failure.
func (l *ResultList) at(i int, expected RequestType) (Result, error) {
	if i < 0 || i >= l.Size() {
		return Result{}, Errorf(RetCBackendFailure, "result index %d out of range (%d results)", i, l.Size())
	}
	r := l.results[i]
	if r.Type != expected {
		return Result{}, Errorf(RetCBackendFailure, "result %d has type %s, expected %s", i, r.Type, expected)
	}
	return r, nil
}

// ProcessReadAt returns the raw value of a read. A missing key returns ErrNotFound.
func (l *ResultList) ProcessReadAt(i int) ([]byte, error) {
	r, err := l.at(i, ReqTRead)
	if err != nil {
		return nil, err
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.Value, nil
}

// ProcessReadNumberAt decodes a read as a number. A missing key yields (0, false, nil).
func (l *ResultList) ProcessReadNumberAt(i int) (int64, bool, error) {
	raw, err := l.ProcessReadAt(i)
	if CodeOf(err) == RetCNotFound {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := DecodeNumber(raw)
	if err != nil {
		return 0, false, Errorf(RetCBackendFailure, "result %d: %v", i, err)
	}
	return n, true, nil
}

// ProcessReadListAt decodes a read as a list. A missing key yields (nil, false, nil).
func (l *ResultList) ProcessReadListAt(i int) ([]string, bool, error) {
	raw, err := l.ProcessReadAt(i)
	if CodeOf(err) == RetCNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	list, err := DecodeList(raw)
	if err != nil {
		return nil, false, Errorf(RetCBackendFailure, "result %d: %v", i, err)
	}
	return list, true, nil
}

// ProcessReadSublistAt decodes a partial list read. It returns the slice and the length of the full list.
func (l *ResultList) ProcessReadSublistAt(i int) ([]string, int, error) {
	r, err := l.at(i, ReqTReadSublist)
	if err != nil {
		return nil, 0, err
	}
	if r.Code == RetCNotFound {
		return nil, 0, nil
	} else if err := r.Err(); err != nil {
		return nil, 0, err
	}
	list, err := DecodeList(r.Value)
	if err != nil {
		return nil, 0, Errorf(RetCBackendFailure, "result %d: %v", i, err)
	}
	return list, r.Length, nil
}

func (l *ResultList) ProcessWriteAt(i int) error {
	return l.processAckAt(i, ReqTWrite)
}

func (l *ResultList) ProcessAddOnNrAt(i int) error {
	return l.processAckAt(i, ReqTAddOnNr)
}

func (l *ResultList) ProcessAddDelOnListAt(i int) error {
	return l.processAckAt(i, ReqTAddDelOnList)
}

func (l *ResultList) processAckAt(i int, expected RequestType) error {
	r, err := l.at(i, expected)
	if err != nil {
		return err
	}
	return r.Err()
}
