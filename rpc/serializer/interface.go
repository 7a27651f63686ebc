package serializer

import (
	"fmt"

	"github.com/ValentinKolb/opexec/rpc/common"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into msg, overwriting all of its fields
	Deserialize(b []byte, msg *common.Message) error
}

// ByName returns the serializer registered under name (json, gob or binary)
func ByName(name string) (IRPCSerializer, error) {
	switch name {
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	case "binary":
		return NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (expected one of: json, gob, binary)", name)
	}
}
