package eventbus

import (
	"encoding/json"
	"fmt"
)

// JSONSerializer encodes event payloads as JSON.
type JSONSerializer struct{}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize implements Serializer. A nil value is rejected with ErrInvalidData.
func (s *JSONSerializer) Serialize(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: cannot serialize nil value", ErrInvalidData)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json serialization failed: %w", err)
	}

	return data, nil
}

// Deserialize implements Serializer.
func (s *JSONSerializer) Deserialize(data []byte, target interface{}) error {
	if target == nil {
		return fmt.Errorf("%w: target cannot be nil", ErrInvalidData)
	}

	if len(data) == 0 {
		return fmt.Errorf("%w: cannot deserialize empty data", ErrInvalidData)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("json deserialization failed: %w", err)
	}

	return nil
}

func (s *JSONSerializer) ContentType() string {
	return "application/json"
}
