package npy

import (
	"bytes"
	"encoding/binary"
	"io"
	"iter"

	"github.com/FocuswithJustin/npyz/core/errors"
)

// DefaultChunkSize is the nominal size of one payload chunk in bytes.
const DefaultChunkSize = 64 << 10

// Payload is the encoded body of an Array, produced chunk by chunk.
type Payload struct {
	array *Array
	codec elementCodec
	width int
	order binary.ByteOrder
	step  int // elements per chunk
}

func newPayload(a *Array, width int, order ByteOrder, chunkSize int) *Payload {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Payload{
		array: a,
		codec: codecs[a.kind],
		width: width,
		order: order.binaryOrder(),
		step:  max(1, chunkSize/width),
	}
}

// Width returns the encoded width of one element.
func (p *Payload) Width() int { return p.width }

// Size returns the total payload size in bytes.
func (p *Payload) Size() int64 { return int64(p.array.Len()) * int64(p.width) }

// Chunks yields the payload in element order. All chunks share one buffer
// sized to a whole number of elements: a chunk is only valid until the next
// one is requested, and the last chunk may be shorter. Ranging again starts
// over from the first element.
func (p *Payload) Chunks() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		n := p.array.Len()
		if n == 0 {
			return
		}
		buf := make([]byte, min(p.step, n)*p.width)
		for from := 0; from < n; from += p.step {
			count := min(p.step, n-from)
			chunk := buf[:count*p.width]
			p.codec.encode(chunk, p.array.data, from, p.width, p.order)
			if !yield(chunk) {
				return
			}
		}
	}
}

// WriteTo writes every chunk to w.
func (p *Payload) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for chunk := range p.Chunks() {
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// readPayload decodes exactly the payload described by h from r, one chunk
// of whole elements at a time. The chunk buffer and the result both grow as
// data arrives, so a short stream fails without allocating the declared
// size up front.
func readPayload(r io.Reader, h Header, kind Kind, chunkSize int) (any, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	count, err := h.Count()
	if err != nil {
		return nil, err
	}
	expected, err := h.PayloadSize()
	if err != nil {
		return nil, err
	}

	codec := codecs[kind]
	order := h.Order.binaryOrder()
	width := h.Width
	step := max(1, chunkSize/width)

	data := codec.alloc(min(count, step))
	if count == 0 {
		return data, checkTrailing(r, expected)
	}

	var buf bytes.Buffer
	var done int64
	for remaining := count; remaining > 0; {
		n := min(step, remaining)
		buf.Reset()
		read, err := io.CopyN(&buf, r, int64(n)*int64(width))
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, errors.NewMismatch("decode payload", "payload length mismatch", expected, done+read)
			}
			return nil, errors.Wrap(err, "decode payload")
		}
		data = codec.decode(data, buf.Bytes(), width, order)
		done += read
		remaining -= n
	}
	return data, checkTrailing(r, expected)
}

// checkTrailing fails if r has bytes beyond the declared payload. Reading to
// EOF also lets checksumming readers report corruption.
func checkTrailing(r io.Reader, expected int64) error {
	var probe [1]byte
	n, err := io.ReadFull(r, probe[:])
	if n > 0 {
		return errors.NewMismatch("decode payload", "payload length mismatch", expected, "trailing bytes")
	}
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "decode payload")
	}
	return nil
}
