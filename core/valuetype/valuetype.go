package valuetype

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"

	"collection-engine/core/collection"
	"collection-engine/core/utils"
)

// Scalar handles immutable values that need no copying. Equality is == for
// comparable dynamic types and a deep comparison otherwise.
type Scalar struct{}

func (Scalar) DeepCopy(v any) any { return v }

func (Scalar) IsEqual(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta != nil && ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func (Scalar) Disassemble(v any) (any, error)  { return v, nil }
func (Scalar) Assemble(token any) (any, error) { return token, nil }

// Int normalizes every numeric representation to int, so values survive a
// round trip through the database or a JSON cache entry unchanged.
type Int struct{}

func (Int) DeepCopy(v any) any { return v }

// IsEqual compares the int forms of a and b. Values without one compare as Scalar.
func (Int) IsEqual(a, b any) bool {
	x, errA := utils.ToInt(a)
	y, errB := utils.ToInt(b)
	if errA != nil || errB != nil {
		return Scalar{}.IsEqual(a, b)
	}
	return x == y
}

func (Int) Disassemble(v any) (any, error)  { return utils.ToInt(v) }
func (Int) Assemble(token any) (any, error) { return utils.ToInt(token) }

// String stores values as strings.
type String struct{}

func (String) DeepCopy(v any) any             { return v }
func (String) IsEqual(a, b any) bool          { return utils.ToString(a) == utils.ToString(b) }
func (String) Disassemble(v any) (any, error) { return utils.ToString(v), nil }
func (String) Assemble(token any) (any, error) {
	if token == nil {
		return nil, fmt.Errorf("cannot assemble nil string token")
	}
	return utils.ToString(token), nil
}

// JSON handles structured values of type T. Copies and cache tokens go through
// encoding/json, so T must round-trip through it.
type JSON[T any] struct{}

func (JSON[T]) DeepCopy(v any) any {
	t, ok := v.(T)
	if !ok {
		return v
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func (JSON[T]) IsEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

// Disassemble encodes v as a JSON string token.
func (JSON[T]) Disassemble(v any) (any, error) {
	t, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("expected %T, got %T", *new(T), v)
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return string(raw), nil
}

// Assemble decodes a JSON string (or byte slice) token into T.
func (JSON[T]) Assemble(token any) (any, error) {
	var raw []byte
	switch tk := token.(type) {
	case string:
		raw = []byte(tk)
	case []byte:
		raw = tk
	default:
		return nil, fmt.Errorf("unexpected JSON token %T", token)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", out, err)
	}
	return out, nil
}

// IntComparator orders values accepted by Int.
func IntComparator(a, b any) int {
	x, _ := utils.ToInt(a)
	y, _ := utils.ToInt(b)
	return cmp.Compare(x, y)
}

// StringComparator orders values by their string form.
func StringComparator(a, b any) int {
	return cmp.Compare(utils.ToString(a), utils.ToString(b))
}

// Lookup resolves a configured type name to a value type and its natural order.
// The comparator is nil for types without one.
func Lookup(name string) (collection.ValueType, collection.Comparator, error) {
	switch name {
	case "", "scalar":
		return Scalar{}, nil, nil
	case "int":
		return Int{}, IntComparator, nil
	case "string":
		return String{}, StringComparator, nil
	case "json":
		return JSON[map[string]any]{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown value type %q", name)
	}
}
