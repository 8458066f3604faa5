// Package npy reads and writes arrays in the NumPy NPY format.
//
// An NPY file is a header (magic, version, a padded dictionary literal
// describing dtype and shape) followed by the raw elements in row-major
// order. Supported dtypes are b1, i1/i2/i4/i8, f4/f8 and fixed-width ASCII
// strings (S). Unsigned, complex, unicode, object and structured dtypes and
// Fortran-ordered arrays are rejected with a FormatError.
//
// See https://numpy.org/doc/stable/reference/generated/numpy.lib.format.html
package npy

import (
	"fmt"
	"io"

	"github.com/FocuswithJustin/npyz/core/errors"
	"github.com/FocuswithJustin/npyz/internal/archive"
	"github.com/FocuswithJustin/npyz/internal/fileutil"
	"github.com/FocuswithJustin/npyz/internal/logging"
)

// Options tunes encoding and decoding. The zero value selects defaults.
type Options struct {
	// Order is the byte order of multi-byte elements. Defaults to LittleEndian.
	Order ByteOrder

	// ChunkSize is the buffer size in bytes used to stream payloads.
	// Defaults to DefaultChunkSize.
	ChunkSize int

	// V1HeaderLimit is the largest metadata length written as version 1.0;
	// longer metadata is written as version 2.0. Defaults to MaxV1HeaderLen.
	V1HeaderLimit int
}

func (o Options) withDefaults() Options {
	if o.Order == 0 {
		o.Order = LittleEndian
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.V1HeaderLimit <= 0 || o.V1HeaderLimit > MaxV1HeaderLen {
		o.V1HeaderLimit = MaxV1HeaderLen
	}
	return o
}

// NewHeader builds a header for the given dtype and shape, choosing version
// 1.0 unless the metadata exceeds V1HeaderLimit. Single-byte and string
// dtypes always use NotApplicable as their byte order.
func (o Options) NewHeader(tag TypeTag, width int, shape []int) (Header, error) {
	o = o.withDefaults()
	if _, err := LookupKind(tag, width); err != nil {
		return Header{}, err
	}
	if _, err := elementCount(shape); err != nil {
		return Header{}, &errors.ValidationError{Field: "shape", Message: err.Error()}
	}

	order := o.Order
	if width == 1 || tag == TypeString {
		order = NotApplicable
	} else if order != LittleEndian && order != BigEndian {
		return Header{}, errors.NewValidation("order", fmt.Sprintf("%s is not valid for %d-byte elements", order, width))
	}

	h := Header{
		Major: 1,
		Order: order,
		Type:  tag,
		Width: width,
		Shape: append([]int(nil), shape...),
	}
	if n := len(h.Metadata()); n > o.V1HeaderLimit {
		logging.Debug("npy header exceeds version 1.0 limit", "metadata_len", n, "limit", o.V1HeaderLimit)
		h.Major = 2
	}
	return h, nil
}

// Encode prepares the header and chunked payload for a without writing.
func Encode(a *Array, opts Options) (Header, *Payload, error) {
	opts = opts.withDefaults()
	codec, ok := codecs[a.kind]
	if !ok {
		return Header{}, nil, errors.NewUnsupported("element kind", a.kind.String())
	}
	width, err := codec.width(a.data)
	if err != nil {
		return Header{}, nil, err
	}
	tag, _ := tagOf(a.kind)
	h, err := opts.NewHeader(tag, width, a.shape)
	if err != nil {
		return Header{}, nil, err
	}
	return h, newPayload(a, width, h.Order, opts.ChunkSize), nil
}

// Write encodes a to w as an NPY stream.
func Write(w io.Writer, a *Array, opts Options) error {
	h, payload, err := Encode(a, opts)
	if err != nil {
		return err
	}
	return writeEncoded(w, h, payload)
}

func writeEncoded(w io.Writer, h Header, payload *Payload) error {
	header, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if _, err := payload.WriteTo(w); err != nil {
		return errors.Wrap(err, "write payload")
	}
	return nil
}

// Read decodes one NPY stream from r. The stream must end right after the
// payload.
func Read(r io.Reader, opts Options) (*Array, error) {
	opts = opts.withDefaults()
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	kind, err := h.Kind()
	if err != nil {
		return nil, err
	}
	data, err := readPayload(r, h, kind, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	return &Array{kind: kind, shape: h.Shape, data: data}, nil
}

// WriteFile writes a to path. The file is replaced atomically: on any error
// the previous content, if any, is left in place. A .xz, .gz, .zst or .lz4
// suffix compresses the stream.
func WriteFile(path string, a *Array, opts Options) error {
	h, payload, err := Encode(a, opts)
	if err != nil {
		return err
	}

	f, err := fileutil.CreateAtomic(path, 0o644)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	w, err := archive.NewWriter(path, f)
	if err != nil {
		f.Abort()
		return errors.NewIO("create", path, err)
	}
	if err := writeEncoded(w, h, payload); err != nil {
		w.Abort()
		return err
	}
	if err := w.Close(); err != nil {
		return errors.NewIO("write", path, err)
	}

	logging.Debug("npy file written", "path", path, "descr", h.Descr(), "shape", h.Shape)
	return nil
}

// ReadFile reads the array stored at path, decompressing .xz, .gz, .zst and
// .lz4 files.
func ReadFile(path string, opts Options) (*Array, error) {
	r, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	a, err := Read(r, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return a, nil
}

// ReadFileHeader reads only the header of the array stored at path.
func ReadFileHeader(path string) (Header, error) {
	r, err := archive.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer r.Close()
	return ReadHeader(r)
}
