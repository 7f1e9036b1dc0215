// Package safeunmarshal unmarshals a tool call's raw JSON arguments into
// a typed Go value, rejecting oversized or empty input before it reaches
// json.Unmarshal and malformed input as json.Unmarshal reports it.
package safeunmarshal

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxInputSize bounds a single tool call's argument payload.
const MaxInputSize = 10 * 1024 * 1024

// To unmarshals raw into a value of type T. Input is trimmed of
// surrounding whitespace; anything not well-formed JSON for T is
// rejected outright, since a tool call's arguments are machine-produced
// JSON, not free text a repair pass would need to salvage.
func To[T any](raw []byte) (T, error) {
	var zero T

	if len(raw) > MaxInputSize {
		return zero, fmt.Errorf("input size %d exceeds maximum allowed size %d", len(raw), MaxInputSize)
	}

	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return zero, fmt.Errorf("empty input")
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return value, nil
}
