// Package protocol implements the JSON-RPC 2.0 wire codec for the MCP
// runtime: envelope types, request id handling, and the classification
// rules that turn raw bytes into a Request, Response, or Notification.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrNonIntegerID is returned when a numeric request id cannot be
// represented exactly as an integer (e.g. 1.5).
var ErrNonIntegerID = errors.New("protocol: request id is a non-integer number")

type requestIDKind uint8

const (
	idKindNull requestIDKind = iota
	idKindNumber
	idKindString
)

// RequestId is a sum type over {signed 64-bit integer, string, null}.
// Ordering/identity is by value; callers must never coerce between the
// integer and string representations.
type RequestId struct {
	kind requestIDKind
	num  int64
	str  string
}

// NumberID constructs an integer request id.
func NumberID(v int64) RequestId { return RequestId{kind: idKindNumber, num: v} }

// StringID constructs a string request id.
func StringID(v string) RequestId { return RequestId{kind: idKindString, str: v} }

// NullID constructs the null request id, valid only on a Response.
func NullID() RequestId { return RequestId{kind: idKindNull} }

// IsNull reports whether id is the null id.
func (id RequestId) IsNull() bool { return id.kind == idKindNull }

// Equal reports whether two ids are identical by kind and value. A
// numeric id is never equal to a string id with the same digits.
func (id RequestId) Equal(other RequestId) bool {
	if id.kind != other.kind {
		return false
	}
	switch id.kind {
	case idKindNumber:
		return id.num == other.num
	case idKindString:
		return id.str == other.str
	default:
		return true
	}
}

// String renders the id for logging and audit trails.
func (id RequestId) String() string {
	switch id.kind {
	case idKindNumber:
		return fmt.Sprintf("%d", id.num)
	case idKindString:
		return id.str
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (id RequestId) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idKindNumber:
		return json.Marshal(id.num)
	case idKindString:
		return json.Marshal(id.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. A float id is coerced to an
// integer by truncation only if it is exactly representable; otherwise
// ErrNonIntegerID is returned so the caller can classify the envelope as
// an invalid request.
func (id *RequestId) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		*id = NullID()
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("protocol: invalid string request id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return fmt.Errorf("protocol: request id must be a number, string, or null: %w", err)
	}
	if f != math.Trunc(f) {
		return ErrNonIntegerID
	}
	*id = NumberID(int64(f))
	return nil
}
