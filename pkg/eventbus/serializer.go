package eventbus

import "errors"

// ErrInvalidData is returned when a value cannot be serialized or deserialized.
var ErrInvalidData = errors.New("invalid data for serialization")

// Serializer converts event payloads to and from bytes.
type Serializer interface {
	Serialize(v interface{}) ([]byte, error)
	// Deserialize decodes data into target, which must be a pointer.
	Deserialize(data []byte, target interface{}) error
	ContentType() string
}
