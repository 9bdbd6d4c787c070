package api

import (
	"encoding/json"
	"errors"
)

// Missable is an optional payload field with three states: absent (the
// zero value, omitted from JSON when tagged omitzero), present with a value,
// and present with null (Some of a nil pointer, slice or map).
type Missable[T any] struct {
	value T
	set   bool
}

// Some marks a field as present.
func Some[T any](v T) Missable[T] {
	return Missable[T]{value: v, set: true}
}

// Absent returns the absent state explicitly.
func Absent[T any]() Missable[T] {
	return Missable[T]{}
}

// IsZero reports absence; encoding/json consults it for omitzero.
func (m Missable[T]) IsZero() bool { return !m.set }

// Get returns the value and whether it is present.
func (m Missable[T]) Get() (T, bool) { return m.value, m.set }

// Or returns the value or fallback when absent.
func (m Missable[T]) Or(fallback T) T {
	if !m.set {
		return fallback
	}
	return m.value
}

func (m Missable[T]) MarshalJSON() ([]byte, error) {
	if !m.set {
		return nil, errUndefinedEncoded
	}
	return json.Marshal(m.value)
}

func (m *Missable[T]) UnmarshalJSON(data []byte) error {
	m.set = true
	return json.Unmarshal(data, &m.value)
}

var errUndefinedEncoded = errors.New("absent value reached the JSON encoder; tag the field omitzero or prune the tree")

type undefined struct{}

func (undefined) MarshalJSON() ([]byte, error) { return nil, errUndefinedEncoded }

// Undefined marks a key or element of a free-form tree as absent. Prune
// removes it before encoding.
var Undefined any = undefined{}

// Object is a free-form JSON object that prunes Undefined values when
// encoded.
type Object map[string]any

func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]any(Prune(o).(Object)))
}

// Prune removes Undefined from maps and slices, recursively. A container
// that became empty only because its members were pruned is removed too;
// one that was empty to begin with is kept.
func Prune(v any) any {
	out, _ := prune(v)
	return out
}

func prune(v any) (any, bool) {
	switch t := v.(type) {
	case undefined:
		return nil, false
	case Object:
		if t == nil {
			return t, true
		}
		m := pruneMap(t)
		return Object(m), len(m) > 0 || len(t) == 0
	case map[string]any:
		if t == nil {
			return t, true
		}
		m := pruneMap(t)
		return m, len(m) > 0 || len(t) == 0
	case []any:
		if t == nil {
			return t, true
		}
		out := make([]any, 0, len(t))
		for _, item := range t {
			if pv, keep := prune(item); keep {
				out = append(out, pv)
			}
		}
		return out, len(out) > 0 || len(t) == 0
	default:
		return v, true
	}
}

func pruneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		if pv, keep := prune(item); keep {
			out[k] = pv
		}
	}
	return out
}
