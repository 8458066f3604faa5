// Package npz reads and writes NPZ archives: zip files holding one NPY
// member per named array.
//
// Members are named "<name>.npy". Each member is stored with a
// precomputed CRC32 or compressed with deflate; zstd (zip method 93) is
// available for readers that support it.
package npz

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"

	"github.com/FocuswithJustin/npyz/core/npy"
)

// Suffix is appended to every array name to form its member name.
const Suffix = ".npy"

// Compression selects how members are written.
type Compression int

const (
	// Stored writes members uncompressed with a precomputed CRC32.
	Stored Compression = iota
	// Deflate compresses members with deflate.
	Deflate
	// Zstd compresses members with zstd under zip method 93.
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Stored:
		return "stored"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// method returns the zip method number for c.
func (c Compression) method() uint16 {
	switch c {
	case Deflate:
		return zip.Deflate
	case Zstd:
		return zstd.ZipMethodWinZip
	default:
		return zip.Store
	}
}

// ParseCompression maps a name such as "deflate" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "stored", "store", "none", "":
		return Stored, nil
	case "deflate", "deflated":
		return Deflate, nil
	case "zstd":
		return Zstd, nil
	}
	return Stored, fmt.Errorf("unknown compression %q", s)
}

// methodName describes a zip method number.
func methodName(method uint16) string {
	switch method {
	case zip.Store:
		return Stored.String()
	case zip.Deflate:
		return Deflate.String()
	case zstd.ZipMethodWinZip:
		return Zstd.String()
	default:
		return fmt.Sprintf("method %d", method)
	}
}

// Options tunes archive writing and member decoding.
type Options struct {
	// Compression applies to every member written. Defaults to Stored.
	Compression Compression

	// ChunkSize, V1HeaderLimit and Order are passed to the npy codec.
	ChunkSize     int
	V1HeaderLimit int
	Order         npy.ByteOrder
}

func (o Options) npyOptions() npy.Options {
	return npy.Options{
		Order:         o.Order,
		ChunkSize:     o.ChunkSize,
		V1HeaderLimit: o.V1HeaderLimit,
	}
}

// Entry describes one member without its payload.
type Entry struct {
	Name           string
	Header         npy.Header
	Kind           npy.Kind // Invalid when the dtype cannot be decoded
	Method         string
	Size           uint64 // uncompressed member size
	CompressedSize uint64
}

func (e Entry) String() string {
	return fmt.Sprintf("%s: %s %v (%s)", e.Name, e.Header.Descr(), e.Header.Shape, e.Method)
}

// dosEpoch is 1980-01-01 00:00 in MS-DOS date format. Every member carries
// it so identical input yields identical archives.
const dosEpoch = 1<<5 | 1

func registerCompressors(w *zip.Writer) {
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
}

func registerDecompressors(r *zip.Reader) {
	r.RegisterDecompressor(zip.Deflate, func(in io.Reader) io.ReadCloser {
		return flate.NewReader(in)
	})
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
}
