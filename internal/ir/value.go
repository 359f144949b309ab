package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the types a fact may hold.
// Only Null, String, Int, Float, Bool, and List implement it.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null represents an absent value (e.g. the comparand of an exists test).
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point value.
// Unlike wire formats that forbid floats, rule confidences and numeric
// comparisons make floats first-class here; canonical serialization uses
// shortest round-trip formatting so hashing stays deterministic.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered collection of values.
type List []Value

func (List) value() {}

// Bindings maps rule variables to the values captured during matching.
type Bindings map[string]Value

// Clone returns a shallow copy. Values are immutable, so sharing them
// between the agenda and the evaluator is safe.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// FromAny converts a decoded Go value (e.g. from YAML or JSON) to a Value.
// Returns an error for types outside the closed set.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		// YAML/JSON decoders produce float64 for all numbers; keep
		// integral floats as Int so equality against rule literals holds.
		if val == float64(int64(val)) {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case float32:
		return FromAny(float64(val))
	case bool:
		return Bool(val), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = conv
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustFromAny is like FromAny but panics on error.
// Use only in tests or for literals known to be valid.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Equal reports deep equality between two values.
// Int and Float compare numerically, so Int(3) equals Float(3.0) -
// rule authors do not distinguish 3 from 3.0.
func Equal(a, b Value) bool {
	if af, aok := AsNumber(a); aok {
		if bf, bok := AsNumber(b); bok {
			// Numeric strings are not coerced for equality, only ordering.
			_, aStr := a.(String)
			_, bStr := b.(String)
			if !aStr && !bStr {
				return af == bf
			}
		}
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AsNumber coerces a value to float64 for ordering comparisons.
// Int, Float, and numeric strings coerce; everything else reports false.
func AsNumber(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	case String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Display renders a value for trace output and substring operators.
func Display(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case Null:
		return "null"
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Display(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// MarshalJSON implementations keep trace output readable: values render as
// their natural JSON forms, not as tagged unions.

func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(string(s)) }
func (i Int) MarshalJSON() ([]byte, error)    { return json.Marshal(int64(i)) }
func (f Float) MarshalJSON() ([]byte, error)  { return json.Marshal(float64(f)) }
func (b Bool) MarshalJSON() ([]byte, error)   { return json.Marshal(bool(b)) }

// MarshalJSON implements json.Marshaler for List.
func (l List) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, len(l))
	for i, elem := range l {
		data, err := json.Marshal(elem)
		if err != nil {
			return nil, err
		}
		out[i] = data
	}
	return json.Marshal(out)
}
