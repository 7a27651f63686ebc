package serializer

import (
	"testing"

	"github.com/ValentinKolb/opexec/lib/store"
	"github.com/ValentinKolb/opexec/rpc/common"
	"github.com/google/go-cmp/cmp"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled.
// Slices are either nil or non-empty since JSON and GOB do not keep empty slices.
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Begin request and response
		{MsgType: common.MsgTTxBegin},
		{MsgType: common.MsgTTxBegin, TxID: "2b7e1516-28ae-4d2a-a6ab-f7158809cf4f"},

		// Committing exec request with every request type
		{
			MsgType: common.MsgTTxExec,
			TxID:    "tx",
			Commit:  true,
			Requests: []store.Request{
				{Type: store.ReqTRead, Key: "k"},
				{Type: store.ReqTWrite, Key: "k", Value: []byte("v")},
				{Type: store.ReqTAddOnNr, Key: "n:3", Delta: -3},
				{Type: store.ReqTAddDelOnList, Key: "l", ToAdd: []string{"a", "b"}, ToRemove: []string{"c"}},
				{Type: store.ReqTReadSublist, Key: "l", Start: 1, Count: 5},
			},
		},

		// Exec response with a failed request
		{
			MsgType: common.MsgTTxExec,
			TxID:    "tx",
			Results: []store.Result{
				{Type: store.ReqTRead, Value: []byte("1")},
				{Type: store.ReqTReadSublist, Value: []byte(`["a"]`), Length: 3},
				{Type: store.ReqTRead, Code: store.RetCNotFound, Msg: "not found"},
			},
			Code: store.RetCInvalidOperation,
			Err:  "request 2 failed",
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    store.RetCConflictAbort,
			Err:     "transaction aborted due to a conflict",
		},

		// Abort request
		{MsgType: common.MsgTTxAbort, TxID: "tx"},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if diff := cmp.Diff(msg, result); diff != "" {
					t.Errorf("Message %d doesn't match after round trip (-want +got):\n%s", i, diff)
				}
			}
		})
	}
}

// TestDeserializeOverwrites tests that decoding into a used message clears stale fields
func TestDeserializeOverwrites(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTTxAbort, TxID: "b"})
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			msg := common.Message{MsgType: common.MsgTTxExec, TxID: "a", Commit: true, Err: "stale"}
			if err := serializer.Deserialize(data, &msg); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if diff := cmp.Diff(common.Message{MsgType: common.MsgTTxAbort, TxID: "b"}, msg); diff != "" {
				t.Errorf("stale fields after decoding (-want +got):\n%s", diff)
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// MsgTUnknown is not tested since it should raise an error in JSON
			for msgType := common.MsgTSuccess; msgType <= common.MsgTTxAbort; msgType++ {
				data, err := serializer.Serialize(common.Message{MsgType: msgType})
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestBinarySerializerEmptySlices tests that the binary format keeps nil and empty slices apart
func TestBinarySerializerEmptySlices(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty request list",
			msg:  common.Message{MsgType: common.MsgTTxExec, Requests: []store.Request{}},
		},
		{
			name: "Empty value and lists",
			msg: common.Message{
				MsgType:  common.MsgTTxExec,
				Requests: []store.Request{{Type: store.ReqTAddDelOnList, Key: "", Value: []byte{}, ToAdd: []string{}, ToRemove: nil}},
			},
		},
		{
			name: "Empty result value",
			msg: common.Message{
				MsgType: common.MsgTTxExec,
				Results: []store.Result{{Type: store.ReqTRead, Value: []byte{}}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// cmp.Diff tells nil and empty slices apart
			if diff := cmp.Diff(tc.msg, result); diff != "" {
				t.Errorf("mismatch after round trip (-want +got):\n%s", diff)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for tx id",
			data:        []byte{3, hasTxID, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Missing requests",
			data:        []byte{4, hasRequests, 0, 0, 0, 1}, // Claims one request but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated code",
			data:        []byte{2, hasCode, 0, 0},
			expectError: true,
		},
		{
			name:        "Commit flag only",
			data:        []byte{4, hasCommit},
			expectError: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestByName tests the lookup used by the command line flags
func TestByName(t *testing.T) {
	for _, name := range []string{"json", "gob", "binary"} {
		if s, err := ByName(name); err != nil || s == nil {
			t.Errorf("ByName(%q) = %v, %v", name, s, err)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Error("expected an error for an unknown serializer")
	}
}
