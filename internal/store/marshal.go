package store

import (
	"encoding/json"
	"fmt"

	"github.com/Zayitus/PLantAdvisor-V4/internal/ir"
)

// marshalValue serializes a fact value as canonical JSON. The same bytes
// that feed binding hashes are what lands in the value column, so a
// stored value compares byte-for-byte across sessions.
func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue decodes a stored value column back into a fact value.
func unmarshalValue(data string) (ir.Value, error) {
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
