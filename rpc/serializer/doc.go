// Package serializer converts common.Message values to bytes and back for the RPC layer.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A flag byte records which fields are
//     present, lengths are 32 bit big endian and nil slices are kept apart from empty ones.
//
//   - gobSerializerImpl: Go's gob encoding.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging with curl.
//
// Client and server must use the same serializer. ByName maps the names accepted by the
// --serializer flag (json, gob, binary) to an implementation.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewBinarySerializer()
//	data, err := serializer.Serialize(*common.NewBeginRequest())
//	// ... send data ...
//	var resp common.Message
//	err = serializer.Deserialize(receivedData, &resp)
package serializer
