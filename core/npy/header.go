package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/npyz/core/errors"
	"github.com/FocuswithJustin/npyz/core/pydict"
)

// Magic is the byte sequence every NPY file starts with.
var Magic = [6]byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

const (
	// MaxV1HeaderLen is the largest metadata length a 1.0 header can describe.
	MaxV1HeaderLen = 1<<16 - 1

	// MaxMetadataLen bounds the metadata a reader is willing to allocate.
	MaxMetadataLen = 1 << 20

	// MaxElementWidth bounds the width of one element, which in practice
	// limits fixed-width strings.
	MaxElementWidth = 1 << 20
)

// Header describes the array stored after it: version, dtype and shape.
// Headers are values; build a new one instead of modifying a decoded one.
type Header struct {
	Major int
	Minor int
	Order ByteOrder
	Type  TypeTag
	Width int
	Shape []int
}

// Descr returns the dtype descriptor, e.g. "<i4".
func (h Header) Descr() string {
	return formatDescr(h.Order, h.Type, h.Width)
}

// Kind resolves the header's dtype against the dispatch table.
func (h Header) Kind() (Kind, error) {
	return LookupKind(h.Type, h.Width)
}

// Count returns the number of elements described by the shape.
func (h Header) Count() (int, error) {
	n, err := elementCount(h.Shape)
	if err != nil {
		return 0, errors.NewFormat("read header", err.Error())
	}
	return n, nil
}

// PayloadSize returns the number of payload bytes following the header.
func (h Header) PayloadSize() (int64, error) {
	n, err := h.Count()
	if err != nil {
		return 0, err
	}
	if h.Width > 0 && int64(n) > (1<<63-1)/int64(h.Width) {
		return 0, errors.NewFormat("read header", fmt.Sprintf("payload of %d x %d bytes overflows", n, h.Width))
	}
	return int64(n) * int64(h.Width), nil
}

// Equal reports whether two headers describe the same version, dtype and shape.
func (h Header) Equal(other Header) bool {
	return h.Major == other.Major && h.Minor == other.Minor &&
		h.Order == other.Order && h.Type == other.Type &&
		h.Width == other.Width && slices.Equal(h.Shape, other.Shape)
}

func (h Header) String() string {
	return fmt.Sprintf("Header{version=%d.%d, descr=%s, shape=%v}", h.Major, h.Minor, h.Descr(), h.Shape)
}

// lengthFieldSize returns the width of the metadata length field for a version.
func lengthFieldSize(major int) int {
	if major == 2 {
		return 4
	}
	return 2
}

func (h Header) checkVersion(op string) error {
	if (h.Major == 1 || h.Major == 2) && h.Minor == 0 {
		return nil
	}
	return errors.NewMismatch(op, "unsupported version", "1.0 or 2.0", fmt.Sprintf("%d.%d", h.Major, h.Minor))
}

// Metadata renders the padded dictionary text. Padding uses trailing spaces
// after the newline so the whole header is a multiple of 16 bytes.
func (h Header) Metadata() []byte {
	var sb strings.Builder
	sb.WriteString("{'descr': '")
	sb.WriteString(h.Descr())
	sb.WriteString("', 'fortran_order': False, 'shape': ")
	sb.WriteString(FormatShape(h.Shape))
	sb.WriteString(", }\n")

	prefix := len(Magic) + 2 + lengthFieldSize(h.Major)
	pad := (16 - (prefix+sb.Len())%16) % 16
	sb.WriteString(strings.Repeat(" ", pad))
	return []byte(sb.String())
}

// FormatShape renders shape as the tuple written in headers, such as
// "(6,)" or "(2, 3)".
func FormatShape(shape []int) string {
	dims := make([]string, len(shape))
	for i, dim := range shape {
		dims[i] = strconv.Itoa(dim)
	}
	if len(dims) == 1 {
		return "(" + dims[0] + ",)"
	}
	return "(" + strings.Join(dims, ", ") + ")"
}

// MarshalBinary encodes the complete header: magic, version, length field
// and metadata. The length field is little-endian for every array order.
func (h Header) MarshalBinary() ([]byte, error) {
	if err := h.checkVersion("write header"); err != nil {
		return nil, err
	}
	meta := h.Metadata()
	if h.Major == 1 && len(meta) > MaxV1HeaderLen {
		return nil, errors.NewMismatch("write header", "metadata too long for version 1.0", fmt.Sprintf("<= %d bytes", MaxV1HeaderLen), len(meta))
	}

	buf := make([]byte, 0, len(Magic)+2+lengthFieldSize(h.Major)+len(meta))
	buf = append(buf, Magic[:]...)
	buf = append(buf, byte(h.Major), byte(h.Minor))
	if h.Major == 1 {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(meta)))
	} else {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(meta)))
	}
	return append(buf, meta...), nil
}

// ReadHeader decodes a header from r, consuming exactly the header bytes.
//
// The dtype is checked for syntax only; use Header.Kind to find out
// whether the payload can be decoded.
func ReadHeader(r io.Reader) (Header, error) {
	var prefix [len(Magic) + 2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Header{}, truncated(err, "magic and version")
	}
	if !bytes.Equal(prefix[:len(Magic)], Magic[:]) {
		return Header{}, errors.NewMismatch("read header", "bad magic", strconv.Quote(string(Magic[:])), strconv.Quote(string(prefix[:len(Magic)])))
	}

	h := Header{Major: int(prefix[6]), Minor: int(prefix[7])}
	if err := h.checkVersion("read header"); err != nil {
		return Header{}, err
	}

	lenField := make([]byte, lengthFieldSize(h.Major))
	if _, err := io.ReadFull(r, lenField); err != nil {
		return Header{}, truncated(err, "length field")
	}
	var size uint64
	if h.Major == 1 {
		size = uint64(binary.LittleEndian.Uint16(lenField))
	} else {
		size = uint64(binary.LittleEndian.Uint32(lenField))
	}
	if size > MaxMetadataLen {
		return Header{}, errors.NewMismatch("read header", "metadata too long", fmt.Sprintf("<= %d bytes", MaxMetadataLen), size)
	}

	meta := make([]byte, size)
	if _, err := io.ReadFull(r, meta); err != nil {
		return Header{}, truncated(err, "metadata")
	}
	for i, c := range meta {
		if c >= 0x80 {
			return Header{}, errors.NewFormat("read header", fmt.Sprintf("non-ASCII byte 0x%02x in metadata at offset %d", c, i))
		}
	}

	dict, err := pydict.Parse(string(meta))
	if err != nil {
		return Header{}, &errors.FormatError{Op: "read header", Message: "malformed metadata", Err: err}
	}
	if err := h.fromDict(dict); err != nil {
		return Header{}, err
	}
	return h, nil
}

func (h *Header) fromDict(dict pydict.Dict) error {
	fortran, ok := dict.Bool("fortran_order")
	if !ok {
		return errors.NewMismatch("read header", "fortran_order", "a boolean", describe(dict, "fortran_order"))
	}
	if fortran {
		return &errors.FormatError{
			Op:      "read header",
			Message: "Fortran-ordered arrays are not supported",
			Err:     errors.NewUnsupported("memory layout", "column-major"),
		}
	}

	dims, ok := dict.Tuple("shape")
	if !ok {
		return errors.NewMismatch("read header", "shape", "a tuple of integers", describe(dict, "shape"))
	}
	if len(dims) == 0 {
		return errors.NewMismatch("read header", "shape rank", ">= 1", 0)
	}
	h.Shape = make([]int, len(dims))
	for i, dim := range dims {
		if dim < 0 || dim > int64(^uint(0)>>1) {
			return errors.NewMismatch("read header", "shape dimension", "a non-negative int", dim)
		}
		h.Shape[i] = int(dim)
	}
	if _, err := h.Count(); err != nil {
		return err
	}

	descr, ok := dict.String("descr")
	if !ok {
		return errors.NewMismatch("read header", "descr", "a string", describe(dict, "descr"))
	}
	order, tag, width, err := parseDescr(descr)
	if err != nil {
		return err
	}
	h.Order, h.Type, h.Width = order, tag, width
	return nil
}

func describe(dict pydict.Dict, key string) string {
	v, ok := dict[key]
	if !ok {
		return "nothing"
	}
	return fmt.Sprintf("%T %v", v, v)
}

func truncated(err error, what string) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.NewFormat("read header", "truncated "+what)
	}
	return errors.Wrap(err, "read header")
}
