package npy

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/FocuswithJustin/npyz/core/errors"
)

// ByteOrder is the byte-order character of a dtype descriptor.
type ByteOrder byte

const (
	// LittleEndian is written as '<'.
	LittleEndian ByteOrder = '<'
	// BigEndian is written as '>'.
	BigEndian ByteOrder = '>'
	// NotApplicable is written as '|' for single-byte and string types.
	NotApplicable ByteOrder = '|'
)

// NativeOrder returns the byte order of the host.
func NativeOrder() ByteOrder {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return LittleEndian
	}
	return BigEndian
}

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "little-endian"
	case BigEndian:
		return "big-endian"
	case NotApplicable:
		return "not-applicable"
	default:
		return fmt.Sprintf("ByteOrder(%q)", byte(o))
	}
}

// binaryOrder maps o to an encoding/binary order. Single-byte codecs never
// consult the order, so NotApplicable maps to little-endian.
func (o ByteOrder) binaryOrder() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// TypeTag is the type character of a dtype descriptor.
type TypeTag byte

const (
	TypeBool   TypeTag = 'b'
	TypeInt    TypeTag = 'i'
	TypeUint   TypeTag = 'u'
	TypeFloat  TypeTag = 'f'
	TypeString TypeTag = 'S'
)

// Kind is the native element type of an Array.
type Kind int

const (
	Invalid Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	String
)

var kindNames = [...]string{
	Invalid: "invalid",
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
	String:  "string",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// descrKey identifies a fixed-width entry of the dispatch table.
type descrKey struct {
	tag   TypeTag
	width int
}

var fixedKinds = map[descrKey]Kind{
	{TypeBool, 1}:  Bool,
	{TypeInt, 1}:   Int8,
	{TypeInt, 2}:   Int16,
	{TypeInt, 4}:   Int32,
	{TypeInt, 8}:   Int64,
	{TypeFloat, 4}: Float32,
	{TypeFloat, 8}: Float64,
}

// unsupportedTags are dtype characters NumPy emits that this package rejects.
var unsupportedTags = map[TypeTag]string{
	TypeUint: "unsigned integers",
	'c':      "complex numbers",
	'U':      "unicode strings",
	'O':      "object arrays",
	'V':      "structured or void types",
	'M':      "datetimes",
	'm':      "timedeltas",
}

// orderedTags are the numeric types whose multi-byte widths need '<' or '>'.
var orderedTags = map[TypeTag]bool{TypeInt: true, TypeUint: true, TypeFloat: true, 'c': true}

// LookupKind resolves a (type tag, width) pair against the dispatch table.
func LookupKind(tag TypeTag, width int) (Kind, error) {
	if reason, ok := unsupportedTags[tag]; ok {
		return Invalid, &errors.FormatError{
			Op:      "lookup dtype",
			Message: fmt.Sprintf("type %q", byte(tag)),
			Err:     errors.NewUnsupported("dtype", reason),
		}
	}
	if tag == TypeString {
		if width < 1 || width > MaxElementWidth {
			return Invalid, errors.NewMismatch("lookup dtype", "string width", fmt.Sprintf("1..%d", MaxElementWidth), width)
		}
		return String, nil
	}
	if kind, ok := fixedKinds[descrKey{tag, width}]; ok {
		return kind, nil
	}
	return Invalid, &errors.FormatError{
		Op:      "lookup dtype",
		Message: fmt.Sprintf("no element type for %q with width %d", byte(tag), width),
		Err:     errors.ErrUnsupported,
	}
}

// tagOf returns the dtype character and fixed width of kind. Strings report width 0.
func tagOf(kind Kind) (TypeTag, int) {
	switch kind {
	case Bool:
		return TypeBool, 1
	case Int8:
		return TypeInt, 1
	case Int16:
		return TypeInt, 2
	case Int32:
		return TypeInt, 4
	case Int64:
		return TypeInt, 8
	case Float32:
		return TypeFloat, 4
	case Float64:
		return TypeFloat, 8
	case String:
		return TypeString, 0
	}
	return 0, 0
}

// formatDescr renders the descr string, e.g. "<i8" or "|S7".
func formatDescr(order ByteOrder, tag TypeTag, width int) string {
	return string([]byte{byte(order), byte(tag)}) + strconv.Itoa(width)
}

// parseDescr splits a descr string into byte order, type tag and width.
func parseDescr(descr string) (ByteOrder, TypeTag, int, error) {
	if len(descr) < 3 {
		return 0, 0, 0, errors.NewMismatch("read header", "malformed descr", "<order><type><width>", strconv.Quote(descr))
	}

	order := ByteOrder(descr[0])
	switch order {
	case LittleEndian, BigEndian, NotApplicable:
	default:
		return 0, 0, 0, errors.NewMismatch("read header", "malformed descr byte order", "one of <, >, |", strconv.Quote(descr[:1]))
	}

	tag := TypeTag(descr[1])
	if !isLetter(descr[1]) {
		return 0, 0, 0, errors.NewMismatch("read header", "malformed descr type", "a type character", strconv.Quote(descr[1:2]))
	}

	digits := descr[2:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, 0, 0, errors.NewMismatch("read header", "malformed descr width", "decimal digits", strconv.Quote(digits))
		}
	}
	width, err := strconv.Atoi(digits)
	if err != nil || width < 1 {
		return 0, 0, 0, errors.NewMismatch("read header", "malformed descr width", "a positive integer", strconv.Quote(digits))
	}

	if width > MaxElementWidth {
		return 0, 0, 0, errors.NewMismatch("read header", "descr width", fmt.Sprintf("<= %d", MaxElementWidth), width)
	}

	if order == NotApplicable && width > 1 && orderedTags[tag] {
		return 0, 0, 0, errors.NewMismatch("read header", "missing byte order", "< or > for multi-byte type", strconv.Quote(descr))
	}

	return order, tag, width, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
