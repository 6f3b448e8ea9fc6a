package uarr

import (
	"fmt"
	"math"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindUndefined
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindNodeRef
)

// String returns the kind name for diagnostics
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindNodeRef:
		return "noderef"
	default:
		return "unknown"
	}
}

// Field is one named entry of an object value. Field order is significant
// and survives encoding.
type Field struct {
	Name  string
	Value Value
}

// Value is a tagged variant over the JSON-like shapes the graph runtime
// produces: null, undefined, bool, int, float, string, array, object and
// node reference. Integers and floats are distinct kinds and stay distinct
// through an encode/decode round trip.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string // string payload or node-ref id
	elems  []Value
	fields []Field
}

// Helper functions to create typed values

func Null() Value {
	return Value{kind: KindNull}
}

func Undefined() Value {
	return Value{kind: KindUndefined}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// NodeRef creates a reference to another node by its stable id.
// The id is opaque to the codec.
func NodeRef(id string) Value {
	return Value{kind: KindNodeRef, s: id}
}

func Array(elems ...Value) Value {
	return Value{kind: KindArray, elems: elems}
}

func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: fields}
}

// F is shorthand for building object fields
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Kind returns the variant tag of the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is the null variant
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// IsUndefined reports whether the value is the undefined variant
func (v Value) IsUndefined() bool {
	return v.kind == KindUndefined
}

// Decode methods

func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("value is not a bool (got %s)", v.kind)
	}
	return v.b, nil
}

func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, fmt.Errorf("value is not an int (got %s)", v.kind)
	}
	return v.i, nil
}

func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, fmt.Errorf("value is not a float (got %s)", v.kind)
	}
	return v.f, nil
}

func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", fmt.Errorf("value is not a string (got %s)", v.kind)
	}
	return v.s, nil
}

func (v Value) AsNodeRef() (string, error) {
	if v.kind != KindNodeRef {
		return "", fmt.Errorf("value is not a node reference (got %s)", v.kind)
	}
	return v.s, nil
}

// Elems returns the elements of an array value, or nil for other kinds
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.elems
}

// Fields returns the fields of an object value in insertion order,
// or nil for other kinds
func (v Value) Fields() []Field {
	if v.kind != KindObject {
		return nil
	}
	return v.fields
}

// FieldByName returns the first field with the given name
func (v Value) FieldByName(name string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len returns the element count for arrays, the field count for objects,
// and 0 for every other kind
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.elems)
	case KindObject:
		return len(v.fields)
	default:
		return 0
	}
}

// Equal reports deep equality of two values. Floats compare by bit
// pattern so NaN equals NaN and a value survives encode/decode unchanged.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindUndefined:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return math.Float64bits(v.f) == math.Float64bits(other.f)
	case KindString, KindNodeRef:
		return v.s == other.s
	case KindArray:
		if len(v.elems) != len(other.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(other.elems[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != other.fields[i].Name {
				return false
			}
			if !v.fields[i].Value.Equal(other.fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
