// File: core/value/value.go
// Package value implements the opaque Value type that carries label data,
// async messages, and configuration arguments through the dataflow core.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package value

import "fmt"

// Kind identifies the dynamic type carried by a Value without requiring a
// full reflection walk on the hot path.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt64
	KindUint64
	KindFloat64
	KindString
	KindBytes
	KindObject // escape hatch: any registered Go type compared via Comparator
)

// Comparator compares two values of the same registered object kind.
// Registered per concrete Go type so Value.Equal never needs reflect.DeepEqual
// on the hot path for primitives, and composite types opt in explicitly.
type Comparator func(a, b any) bool

var comparators = map[string]Comparator{}

// RegisterComparator installs an equality comparator for the Go type name
// produced by fmt.Sprintf("%T", zero). Call during package init for any
// object type carried as KindObject that needs Equal support.
func RegisterComparator(typeName string, cmp Comparator) {
	comparators[typeName] = cmp
}

// Value is a tagged union: exactly one of the typed fields is meaningful,
// selected by Kind. Object carries anything outside the well-known
// primitives; its equality is resolved through the comparator registry.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	u      uint64
	f      float64
	s      string
	bytes  []byte
	object any
}

// Invalid is the zero Value; Kind() reports KindInvalid.
var Invalid Value

func Bool(v bool) Value       { return Value{kind: KindBool, b: v} }
func Int64(v int64) Value     { return Value{kind: KindInt64, i: v} }
func Uint64(v uint64) Value   { return Value{kind: KindUint64, u: v} }
func Float64(v float64) Value { return Value{kind: KindFloat64, f: v} }
func String(v string) Value   { return Value{kind: KindString, s: v} }

// Bytes copies v so the Value does not alias caller-owned memory; labels and
// messages must be safe to hold past the producing work() call.
func Bytes(v []byte) Value {
	dup := make([]byte, len(v))
	copy(dup, v)
	return Value{kind: KindBytes, bytes: dup}
}

// Object wraps any Go value not covered by the primitive constructors.
func Object(v any) Value { return Value{kind: KindObject, object: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsInt64() (int64, bool)     { return v.i, v.kind == KindInt64 }
func (v Value) AsUint64() (uint64, bool)   { return v.u, v.kind == KindUint64 }
func (v Value) AsFloat64() (float64, bool) { return v.f, v.kind == KindFloat64 }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool)    { return v.bytes, v.kind == KindBytes }
func (v Value) AsObject() (any, bool)      { return v.object, v.kind == KindObject }

// Equal reports type-and-value equality. Two KindObject values compare equal
// only if a comparator was registered for their concrete Go type and that
// comparator reports true; an unregistered object type never compares equal,
// even to itself, since there is no safe default.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindBool:
		return v.b == other.b
	case KindInt64:
		return v.i == other.i
	case KindUint64:
		return v.u == other.u
	case KindFloat64:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindBytes:
		return bytesEqual(v.bytes, other.bytes)
	case KindObject:
		name := fmt.Sprintf("%T", v.object)
		cmp, ok := comparators[name]
		if !ok {
			return false
		}
		return cmp(v.object, other.object)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindInvalid:
		return "<invalid>"
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt64:
		return fmt.Sprintf("%d", v.i)
	case KindUint64:
		return fmt.Sprintf("%d", v.u)
	case KindFloat64:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.bytes)
	case KindObject:
		return fmt.Sprintf("%v", v.object)
	default:
		return "<unknown>"
	}
}
