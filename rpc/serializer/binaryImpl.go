package serializer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasTxID     byte = 1 << 0
	hasCommit   byte = 1 << 1
	hasRequests byte = 1 << 2
	hasResults  byte = 1 << 3
	hasCode     byte = 1 << 4
	hasErr      byte = 1 << 5
)

// nilLen marks a nil slice, a length of 0 is an empty but non-nil slice
const nilLen = math.MaxUint32

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Header: MsgType + flags (set below)
	buf := make([]byte, 2, 64)
	buf[0] = byte(msg.MsgType)
	var flags byte = 0

	if msg.TxID != "" {
		flags |= hasTxID
		buf = appendString(buf, msg.TxID)
	}

	if msg.Commit {
		flags |= hasCommit
	}

	if msg.Requests != nil {
		flags |= hasRequests
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg.Requests)))
		for _, req := range msg.Requests {
			buf = append(buf, byte(req.Type))
			buf = appendString(buf, req.Key)
			buf = appendBytes(buf, req.Value)
			buf = binary.BigEndian.AppendUint64(buf, uint64(req.Delta))
			buf = appendStrings(buf, req.ToAdd)
			buf = appendStrings(buf, req.ToRemove)
			buf = binary.BigEndian.AppendUint64(buf, uint64(int64(req.Start)))
			buf = binary.BigEndian.AppendUint64(buf, uint64(int64(req.Count)))
		}
	}

	if msg.Results != nil {
		flags |= hasResults
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(msg.Results)))
		for _, res := range msg.Results {
			buf = append(buf, byte(res.Type))
			buf = binary.BigEndian.AppendUint64(buf, uint64(res.Code))
			buf = appendString(buf, res.Msg)
			buf = appendBytes(buf, res.Value)
			buf = binary.BigEndian.AppendUint64(buf, uint64(int64(res.Length)))
		}
	}

	if msg.Code != store.RetCSuccess {
		flags |= hasCode
		buf = binary.BigEndian.AppendUint64(buf, uint64(msg.Code))
	}

	if msg.Err != "" {
		flags |= hasErr
		buf = appendString(buf, msg.Err)
	}

	// Set flags byte after knowing which fields are present
	buf[1] = flags

	return buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := &reader{data: data, pos: 2}

	if flags&hasTxID != 0 {
		msg.TxID = r.str("tx id")
	}

	msg.Commit = flags&hasCommit != 0

	if flags&hasRequests != 0 {
		n := r.u32("request count")
		if r.err == nil {
			msg.Requests = make([]store.Request, 0, min(int(n), len(data)))
		}
		for i := uint32(0); i < n && r.err == nil; i++ {
			req := store.Request{Type: store.RequestType(r.u8("request type"))}
			req.Key = r.str("request key")
			req.Value = r.raw("request value")
			req.Delta = int64(r.u64("request delta"))
			req.ToAdd = r.strs("request to add")
			req.ToRemove = r.strs("request to remove")
			req.Start = int(int64(r.u64("request start")))
			req.Count = int(int64(r.u64("request count")))
			msg.Requests = append(msg.Requests, req)
		}
	}

	if flags&hasResults != 0 {
		n := r.u32("result count")
		if r.err == nil {
			msg.Results = make([]store.Result, 0, min(int(n), len(data)))
		}
		for i := uint32(0); i < n && r.err == nil; i++ {
			res := store.Result{Type: store.RequestType(r.u8("result type"))}
			res.Code = store.RetCode(r.u64("result code"))
			res.Msg = r.str("result message")
			res.Value = r.raw("result value")
			res.Length = int(int64(r.u64("result length")))
			msg.Results = append(msg.Results, res)
		}
	}

	if flags&hasCode != 0 {
		msg.Code = store.RetCode(r.u64("code"))
	}

	if flags&hasErr != 0 {
		msg.Err = r.str("error")
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBytes(buf []byte, b []byte) []byte {
	if b == nil {
		return binary.BigEndian.AppendUint32(buf, nilLen)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func appendStrings(buf []byte, list []string) []byte {
	if list == nil {
		return binary.BigEndian.AppendUint32(buf, nilLen)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(list)))
	for _, s := range list {
		buf = appendString(buf, s)
	}
	return buf
}

// reader decodes fields in order and keeps the first error, later reads return zero values
type reader struct {
	data []byte
	pos  int
	err  error
}

// take returns the next n bytes
func (r *reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8(field string) byte {
	if b := r.take(1, field); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u32(field string) uint32 {
	if b := r.take(4, field); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64(field string) uint64 {
	if b := r.take(8, field); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) str(field string) string {
	n := r.u32(field + " length")
	return string(r.take(int(n), field))
}

func (r *reader) raw(field string) []byte {
	n := r.u32(field + " length")
	if r.err != nil || n == nilLen {
		return nil
	}
	b := r.take(int(n), field)
	if b == nil {
		return nil
	}
	// copy, the caller may reuse data
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *reader) strs(field string) []string {
	n := r.u32(field + " count")
	if r.err != nil || n == nilLen {
		return nil
	}
	list := make([]string, 0, min(int(n), len(r.data)))
	for i := uint32(0); i < n && r.err == nil; i++ {
		list = append(list, r.str(field))
	}
	if r.err != nil {
		return nil
	}
	return list
}
