// Package schema validates arbitrary decoded JSON values against the
// subset of JSON Schema the MCP tool surface uses for inputSchema:
// type, required, properties, items, minimum/maximum, minLength/
// maxLength, pattern (recognized but always satisfied), and enum.
// Validation is purely structural — no coercion between types is ever
// performed.
package schema

import (
	"fmt"
)

// ErrorKind classifies a single validation failure.
type ErrorKind string

const (
	KindTypeMismatch    ErrorKind = "TypeMismatch"
	KindRequiredMissing ErrorKind = "RequiredFieldMissing"
	KindOutOfBounds     ErrorKind = "OutOfBounds"
	KindInvalidFormat   ErrorKind = "InvalidFormat"
)

// ValidationError is one structural failure found at Path (a simple
// dotted/bracketed JSON Pointer-like trail for diagnostics).
type ValidationError struct {
	Kind    ErrorKind
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Path, e.Message)
}

// Validate checks value (the result of json.Unmarshal into any —
// map[string]any, []any, float64, string, bool, or nil) against schema
// (itself a decoded JSON value, conventionally map[string]any) and
// returns every violation found. A nil (zero-length) return means
// validation passed.
func Validate(schemaVal, value any) []*ValidationError {
	v := &validator{}
	v.walk("$", schemaVal, value)
	return v.errs
}

type validator struct {
	errs []*ValidationError
}

func (v *validator) fail(kind ErrorKind, path, msg string) {
	v.errs = append(v.errs, &ValidationError{Kind: kind, Path: path, Message: msg})
}

func (v *validator) walk(path string, schemaVal, value any) {
	schema, ok := schemaVal.(map[string]any)
	if !ok {
		// A non-object schema imposes no constraints — nothing to check.
		return
	}

	if t, ok := schema["type"]; ok {
		if typeName, ok := t.(string); ok {
			if !matchesType(typeName, value) {
				v.fail(KindTypeMismatch, path, fmt.Sprintf("expected type %q", typeName))
				return
			}
		}
	}

	if enumVal, ok := schema["enum"]; ok {
		if values, ok := enumVal.([]any); ok && !enumContains(values, value) {
			v.fail(KindInvalidFormat, path, "value is not one of the enum's permitted literals")
		}
	}

	switch val := value.(type) {
	case map[string]any:
		v.walkObject(path, schema, val)
	case []any:
		v.walkArray(path, schema, val)
	case float64:
		v.walkNumber(path, schema, val)
	case string:
		v.walkString(path, schema, val)
	}
}

func (v *validator) walkObject(path string, schema map[string]any, obj map[string]any) {
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			name, ok := r.(string)
			if !ok {
				continue
			}
			if _, present := obj[name]; !present {
				v.fail(KindRequiredMissing, path, fmt.Sprintf("missing required property %q", name))
			}
		}
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return
	}
	for name, sub := range props {
		child, present := obj[name]
		if !present {
			continue
		}
		v.walk(path+"."+name, sub, child)
	}
}

func (v *validator) walkArray(path string, schema map[string]any, arr []any) {
	items, ok := schema["items"]
	if !ok {
		return
	}
	for i, elem := range arr {
		v.walk(fmt.Sprintf("%s[%d]", path, i), items, elem)
	}
}

func (v *validator) walkNumber(path string, schema map[string]any, n float64) {
	if minVal, ok := asFloat(schema["minimum"]); ok && n < minVal {
		v.fail(KindOutOfBounds, path, fmt.Sprintf("%v is below minimum %v", n, minVal))
	}
	if maxVal, ok := asFloat(schema["maximum"]); ok && n > maxVal {
		v.fail(KindOutOfBounds, path, fmt.Sprintf("%v is above maximum %v", n, maxVal))
	}
}

func (v *validator) walkString(path string, schema map[string]any, s string) {
	length := len([]rune(s))
	if minVal, ok := asFloat(schema["minLength"]); ok && float64(length) < minVal {
		v.fail(KindOutOfBounds, path, fmt.Sprintf("length %d is below minLength %v", length, minVal))
	}
	if maxVal, ok := asFloat(schema["maxLength"]); ok && float64(length) > maxVal {
		v.fail(KindOutOfBounds, path, fmt.Sprintf("length %d is above maxLength %v", length, maxVal))
	}
	// "pattern" is a recognized keyword but matching is not implemented;
	// per the accepted subset, an unimplemented pattern is always
	// satisfied rather than rejected.
}

func asFloat(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func enumContains(values []any, target any) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// matchesType reports whether value's dynamic JSON type satisfies
// typeName, with the one special case the spec calls out: "integer"
// additionally requires the float64 to be a whole number, while
// "number" accepts any float64.
func matchesType(typeName string, value any) bool {
	switch typeName {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		if !ok {
			return false
		}
		return f == float64(int64(f))
	default:
		// Unknown type keyword is ignored per "unknown keywords are
		// ignored" — treat as always satisfied.
		return true
	}
}
