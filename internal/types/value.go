package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataType is the closed set of kinds a stored Value can have.
type DataType uint8

const (
	Int32 DataType = iota
	Float32
	Text
)

func (t DataType) String() string {
	switch t {
	case Int32:
		return "INT32"
	case Float32:
		return "FLOAT32"
	case Text:
		return "TEXT"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(t))
	}
}

// Numeric reports whether values of this type can feed SUM/AVG.
func (t DataType) Numeric() bool {
	return t == Int32 || t == Float32
}

// canonicalNaN is the single bit pattern all NaN payloads are collapsed to,
// so that Value stays usable as a map key under ==.
const canonicalNaN = 0x7FC00000

// Value is a tagged union over int32, float32 and text. The zero Value is
// Int32(0). Values are comparable; float payloads are stored as canonicalized
// IEEE-754 bits, so equality follows the float total order (NaN == NaN,
// -0 != +0).
type Value struct {
	kind DataType
	bits uint32
	text string
}

func NewInt32(v int32) Value {
	return Value{kind: Int32, bits: uint32(v)}
}

func NewFloat32(v float32) Value {
	bits := math.Float32bits(v)
	if v != v {
		bits = canonicalNaN
	}
	return Value{kind: Float32, bits: bits}
}

func NewText(s string) Value {
	return Value{kind: Text, text: s}
}

func (v Value) Kind() DataType { return v.kind }

// Int32 returns the payload; zero unless Kind() == Int32.
func (v Value) Int32() int32 {
	if v.kind != Int32 {
		return 0
	}
	return int32(v.bits)
}

// Float32 returns the payload; zero unless Kind() == Float32.
func (v Value) Float32() float32 {
	if v.kind != Float32 {
		return 0
	}
	return math.Float32frombits(v.bits)
}

// Text returns the payload; empty unless Kind() == Text.
func (v Value) Text() string {
	if v.kind != Text {
		return ""
	}
	return v.text
}

func (v Value) String() string {
	switch v.kind {
	case Int32:
		return strconv.FormatInt(int64(int32(v.bits)), 10)
	case Float32:
		return strconv.FormatFloat(float64(math.Float32frombits(v.bits)), 'g', -1, 32)
	case Text:
		return v.text
	default:
		return "?"
	}
}

// Equal reports tag-respecting equality. Cross-tag values are never equal.
func (v Value) Equal(o Value) bool { return v == o }

// Compare orders two values of the same kind: -1, 0 or +1. Cross-tag pairs
// are incomparable and reported via ok == false; callers decide whether that
// is a type error (condition evaluation) or a forced tie (Cmp).
func (v Value) Compare(o Value) (int, bool) {
	if v.kind != o.kind {
		return 0, false
	}
	switch v.kind {
	case Int32:
		return cmpOrdered(int32(v.bits), int32(o.bits)), true
	case Float32:
		return cmpOrdered(floatOrderKey(v.bits), floatOrderKey(o.bits)), true
	case Text:
		return strings.Compare(v.text, o.text), true
	default:
		return 0, false
	}
}

// Cmp is the forced total order used by min/max and sort-based operators:
// same as Compare, except cross-tag pairs collapse to 0. Callers must not
// rely on cross-tag ordering.
func (v Value) Cmp(o Value) int {
	c, _ := v.Compare(o)
	return c
}

// floatOrderKey maps IEEE-754 bits onto a key whose unsigned order is the
// float total order: -NaN < -Inf < ... < -0 < +0 < ... < +Inf < +NaN.
func floatOrderKey(bits uint32) uint32 {
	if bits&0x80000000 != 0 {
		return ^bits
	}
	return bits | 0x80000000
}

func cmpOrdered[T int32 | uint32](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
