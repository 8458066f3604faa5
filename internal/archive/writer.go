package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Writer compresses into a destination it owns.
type Writer struct {
	io.Writer
	dst        io.Closer
	compressor io.Closer
}

// NewWriter wraps dst in the compressor name's suffix implies. Closing the
// Writer flushes the compressor and then closes dst.
func NewWriter(name string, dst io.WriteCloser) (*Writer, error) {
	var (
		w          io.Writer = dst
		compressor io.WriteCloser
		err        error
	)

	switch CompressionFor(name) {
	case XZ:
		compressor, err = xz.NewWriter(dst)
		if err != nil {
			return nil, fmt.Errorf("xz writer: %w", err)
		}
	case Gzip:
		compressor = gzip.NewWriter(dst)
	case Zstd:
		compressor, err = zstd.NewWriter(dst)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
	case LZ4:
		compressor = lz4.NewWriter(dst)
	}
	if compressor != nil {
		w = compressor
	}

	return &Writer{
		Writer:     w,
		dst:        dst,
		compressor: compressor,
	}, nil
}

// aborter is a destination that can discard what it was given.
type aborter interface {
	Abort() error
}

// Close flushes the compressor and closes the destination. If the flush
// fails, a destination that supports Abort is discarded instead of closed.
func (w *Writer) Close() error {
	if w.compressor != nil {
		if err := w.compressor.Close(); err != nil {
			w.abortDst()
			return err
		}
	}
	return w.dst.Close()
}

// Abort releases the compressor and discards the destination when it
// supports Abort; otherwise the destination is closed.
func (w *Writer) Abort() error {
	if w.compressor != nil {
		w.compressor.Close()
	}
	return w.abortDst()
}

func (w *Writer) abortDst() error {
	if a, ok := w.dst.(aborter); ok {
		return a.Abort()
	}
	return w.dst.Close()
}
