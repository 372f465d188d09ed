package nbt

import (
	"bytes"
	"math"
	"slices"
)

// Equal reports whether a and b are the same tree: same kinds, same values,
// same key order. Floats compare by bit pattern so NaN payloads count.
func Equal(a, b Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Float:
		return math.Float32bits(float32(x)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Double)))
	case ByteArray:
		return bytes.Equal(x, b.(ByteArray))
	case IntArray:
		return slices.Equal(x, b.(IntArray))
	case LongArray:
		return slices.Equal(x, b.(LongArray))
	case *List:
		y := b.(*List)
		if x.elem != y.elem || len(x.items) != len(y.items) {
			return false
		}
		for i := range x.items {
			if !Equal(x.items[i], y.items[i]) {
				return false
			}
		}
		return true
	case *Compound:
		y := b.(*Compound)
		if x.Len() != y.Len() {
			return false
		}
		for i := range x.entries {
			if x.entries[i].Key != y.entries[i].Key || !Equal(x.entries[i].Tag, y.entries[i].Tag) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
