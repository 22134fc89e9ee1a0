package types

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Binary layout (little-endian, byte-exact contract):
//
//	INT32   -> 4 bytes, two's complement
//	FLOAT32 -> 4 bytes, raw IEEE-754 bits
//	TEXT    -> 4-byte byte length prefix + UTF-8 bytes

// EncodedSize returns the exact number of bytes Encode will produce.
func (v Value) EncodedSize() int {
	if v.kind == Text {
		return 4 + len(v.text)
	}
	return 4
}

// AppendTo appends the encoded value to dst and returns the extended slice.
func (v Value) AppendTo(dst []byte) []byte {
	switch v.kind {
	case Text:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.text)))
		return append(dst, v.text...)
	default:
		return binary.LittleEndian.AppendUint32(dst, v.bits)
	}
}

func (v Value) Encode() []byte {
	return v.AppendTo(make([]byte, 0, v.EncodedSize()))
}

// Decode reads one value of the given type from the front of b, returning the
// value and the number of bytes consumed. It fails with ErrSerialization when
// b is shorter than the type (or the declared text length) demands, or when
// text bytes are not valid UTF-8.
func Decode(t DataType, b []byte) (Value, int, error) {
	switch t {
	case Int32:
		if len(b) < 4 {
			return Value{}, 0, fmt.Errorf("insufficient bytes for INT32: %w", ErrSerialization)
		}
		return NewInt32(int32(binary.LittleEndian.Uint32(b))), 4, nil

	case Float32:
		if len(b) < 4 {
			return Value{}, 0, fmt.Errorf("insufficient bytes for FLOAT32: %w", ErrSerialization)
		}
		return newFloat32Bits(binary.LittleEndian.Uint32(b)), 4, nil

	case Text:
		if len(b) < 4 {
			return Value{}, 0, fmt.Errorf("insufficient bytes for TEXT length: %w", ErrSerialization)
		}
		n := int(binary.LittleEndian.Uint32(b))
		if len(b) < 4+n {
			return Value{}, 0, fmt.Errorf("insufficient bytes for TEXT of length %d: %w", n, ErrSerialization)
		}
		raw := b[4 : 4+n]
		if !utf8.Valid(raw) {
			return Value{}, 0, fmt.Errorf("TEXT bytes are not valid UTF-8: %w", ErrSerialization)
		}
		return NewText(string(raw)), 4 + n, nil

	default:
		return Value{}, 0, fmt.Errorf("unknown data type %d: %w", t, ErrSerialization)
	}
}

func newFloat32Bits(bits uint32) Value {
	// NaN payloads collapse to the canonical pattern, same as NewFloat32.
	if bits&0x7F800000 == 0x7F800000 && bits&0x007FFFFF != 0 {
		bits = canonicalNaN
	}
	return Value{kind: Float32, bits: bits}
}
