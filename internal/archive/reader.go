// Package archive wraps single-array streams in a compressor chosen by file
// name suffix. It supports .xz, .gz, .zst and .lz4; any other name passes
// through.
package archive

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression identifies a stream compression format.
type Compression int

const (
	None Compression = iota
	Gzip
	XZ
	Zstd
	LZ4
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case XZ:
		return "xz"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// CompressionFor picks the stream compression implied by name's suffix.
func CompressionFor(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".xz"):
		return XZ
	case strings.HasSuffix(name, ".gz"):
		return Gzip
	case strings.HasSuffix(name, ".zst"):
		return Zstd
	case strings.HasSuffix(name, ".lz4"):
		return LZ4
	default:
		return None
	}
}

// Reader is a decompressed view of a file.
type Reader struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
}

// Open opens path and wraps it in the decompressor its suffix implies.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	reader, decompressor, err := decompress(CompressionFor(path), f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Reader{
		Reader:       reader,
		file:         f,
		decompressor: decompressor,
	}, nil
}

// NewReader wraps r in the decompressor name's suffix implies. Closing the
// result releases the decompressor but not r.
func NewReader(name string, r io.Reader) (io.ReadCloser, error) {
	reader, decompressor, err := decompress(CompressionFor(name), r)
	if err != nil {
		return nil, err
	}
	return &Reader{Reader: reader, decompressor: decompressor}, nil
}

func decompress(c Compression, r io.Reader) (io.Reader, io.Closer, error) {
	switch c {
	case XZ:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz reader: %w", err)
		}
		return xzr, nil, nil // xz reader doesn't need closing
	case Gzip:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gzr, gzr, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd reader: %w", err)
		}
		rc := zr.IOReadCloser()
		return rc, rc, nil
	case LZ4:
		return lz4.NewReader(r), nil, nil
	default:
		return r, nil, nil
	}
}

// Close closes the decompressor and the underlying file, if any.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
