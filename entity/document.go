// Package entity implements partial updates (patches) of catalogue entities on top of
// their show and update operations.
package entity

import (
	"maps"
	"math"
)

// Document is the decoded representation of an entity as exchanged with show and
// update operations. Values are scalars, nested documents or lists.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return maps.Clone(d)
}

// ID returns the value of the id field, or nil.
func (d Document) ID() any {
	return d["id"]
}

// RequireField returns the named field of doc or a *MissingFieldError when it is absent.
func RequireField(doc Document, name string) (any, error) {
	v, ok := doc[name]
	if !ok || v == nil {
		return nil, &MissingFieldError{Field: name}
	}
	return v, nil
}

// AsDocument reports whether v is a document and returns it.
func AsDocument(v any) (Document, bool) {
	switch d := v.(type) {
	case Document:
		return d, true
	case map[string]any:
		return Document(d), true
	default:
		return nil, false
	}
}

// AsList converts the list shapes produced by the JSON, YAML and TOML decoders into []any.
func AsList(v any) ([]any, bool) {
	switch l := v.(type) {
	case nil:
		return nil, true
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []Document:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// SameID compares two id values. Numbers compare by value regardless of the decoder that
// produced them; non-comparable values never match.
func SameID(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	switch a.(type) {
	case string, bool:
		return a == b
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
