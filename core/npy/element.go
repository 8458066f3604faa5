package npy

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/FocuswithJustin/npyz/core/errors"
)

// elementCodec converts between a typed slice and its fixed-width byte form.
type elementCodec interface {
	// width returns the element width used to encode data.
	width(data any) (int, error)
	// encode fills dst with len(dst)/width elements of data starting at from.
	encode(dst []byte, data any, from, width int, order binary.ByteOrder)
	// decode appends the elements in src to data and returns the result.
	decode(data any, src []byte, width int, order binary.ByteOrder) any
	// alloc returns an empty slice with the given capacity.
	alloc(capacity int) any
}

var codecs = map[Kind]elementCodec{
	Bool: fixedCodec[bool]{
		size: 1,
		put: func(b []byte, v bool, _ binary.ByteOrder) {
			b[0] = 0
			if v {
				b[0] = 1
			}
		},
		get: func(b []byte, _ binary.ByteOrder) bool { return b[0] != 0 },
	},
	Int8: fixedCodec[int8]{
		size: 1,
		put:  func(b []byte, v int8, _ binary.ByteOrder) { b[0] = byte(v) },
		get:  func(b []byte, _ binary.ByteOrder) int8 { return int8(b[0]) },
	},
	Int16: fixedCodec[int16]{
		size: 2,
		put:  func(b []byte, v int16, o binary.ByteOrder) { o.PutUint16(b, uint16(v)) },
		get:  func(b []byte, o binary.ByteOrder) int16 { return int16(o.Uint16(b)) },
	},
	Int32: fixedCodec[int32]{
		size: 4,
		put:  func(b []byte, v int32, o binary.ByteOrder) { o.PutUint32(b, uint32(v)) },
		get:  func(b []byte, o binary.ByteOrder) int32 { return int32(o.Uint32(b)) },
	},
	Int64: fixedCodec[int64]{
		size: 8,
		put:  func(b []byte, v int64, o binary.ByteOrder) { o.PutUint64(b, uint64(v)) },
		get:  func(b []byte, o binary.ByteOrder) int64 { return int64(o.Uint64(b)) },
	},
	Float32: fixedCodec[float32]{
		size: 4,
		put:  func(b []byte, v float32, o binary.ByteOrder) { o.PutUint32(b, math.Float32bits(v)) },
		get:  func(b []byte, o binary.ByteOrder) float32 { return math.Float32frombits(o.Uint32(b)) },
	},
	Float64: fixedCodec[float64]{
		size: 8,
		put:  func(b []byte, v float64, o binary.ByteOrder) { o.PutUint64(b, math.Float64bits(v)) },
		get:  func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) },
	},
	String: stringCodec{},
}

type fixedCodec[T Element] struct {
	size int
	put  func(b []byte, v T, order binary.ByteOrder)
	get  func(b []byte, order binary.ByteOrder) T
}

func (c fixedCodec[T]) width(any) (int, error) { return c.size, nil }

func (c fixedCodec[T]) encode(dst []byte, data any, from, width int, order binary.ByteOrder) {
	values := data.([]T)
	for off, i := 0, from; off+width <= len(dst); off, i = off+width, i+1 {
		c.put(dst[off:off+width], values[i], order)
	}
}

func (c fixedCodec[T]) decode(data any, src []byte, width int, order binary.ByteOrder) any {
	values := data.([]T)
	for off := 0; off+width <= len(src); off += width {
		values = append(values, c.get(src[off:off+width], order))
	}
	return values
}

func (c fixedCodec[T]) alloc(capacity int) any { return make([]T, 0, capacity) }

// stringCodec stores NUL-padded ASCII blocks as wide as the longest element.
type stringCodec struct{}

func (stringCodec) width(data any) (int, error) {
	width := 1
	for i, s := range data.([]string) {
		for j := 0; j < len(s); j++ {
			if s[j] >= 0x80 {
				return 0, &errors.ValidationError{
					Field:   fmt.Sprintf("element %d", i),
					Value:   s,
					Message: "string elements must be ASCII",
				}
			}
		}
		if len(s) > MaxElementWidth {
			return 0, &errors.ValidationError{
				Field:   fmt.Sprintf("element %d", i),
				Message: fmt.Sprintf("string of %d bytes exceeds %d", len(s), MaxElementWidth),
			}
		}
		width = max(width, len(s))
	}
	return width, nil
}

func (stringCodec) encode(dst []byte, data any, from, width int, _ binary.ByteOrder) {
	values := data.([]string)
	for off, i := 0, from; off+width <= len(dst); off, i = off+width, i+1 {
		n := copy(dst[off:off+width], values[i])
		clear(dst[off+n : off+width])
	}
}

func (stringCodec) decode(data any, src []byte, width int, _ binary.ByteOrder) any {
	values := data.([]string)
	for off := 0; off+width <= len(src); off += width {
		values = append(values, strings.TrimRight(string(src[off:off+width]), "\x00"))
	}
	return values
}

func (stringCodec) alloc(capacity int) any { return make([]string, 0, capacity) }
