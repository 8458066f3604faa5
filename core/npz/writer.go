package npz

import (
	"archive/zip"
	"hash/crc32"
	"io"

	"github.com/FocuswithJustin/npyz/core/errors"
	"github.com/FocuswithJustin/npyz/core/npy"
	"github.com/FocuswithJustin/npyz/internal/fileutil"
	"github.com/FocuswithJustin/npyz/internal/logging"
	"github.com/FocuswithJustin/npyz/internal/validation"
)

// Writer adds named arrays to an archive. It is not safe for concurrent use.
type Writer struct {
	zw     *zip.Writer
	dst    *fileutil.AtomicFile // nil when the caller owns the destination
	opts   Options
	names  map[string]bool
	broken error // a member write failed part way
	closed bool
}

// Create creates the archive at path. Members go to a temporary file that
// Close renames into place; Abort, or a Close after a member write failed
// part way, removes it and leaves any existing file at path untouched.
func Create(path string, opts Options) (*Writer, error) {
	f, err := fileutil.CreateAtomic(path, 0o644)
	if err != nil {
		return nil, errors.NewIO("create", path, err)
	}
	w := NewWriter(f, opts)
	w.dst = f
	return w, nil
}

// NewWriter writes an archive to w. Closing the Writer finishes the archive
// but does not close w.
func NewWriter(w io.Writer, opts Options) *Writer {
	zw := zip.NewWriter(w)
	registerCompressors(zw)
	return &Writer{
		zw:    zw,
		opts:  opts,
		names: make(map[string]bool),
	}
}

// Write adds a as the member "<name>.npy".
func (w *Writer) Write(name string, a *npy.Array) error {
	if w.closed {
		return errors.NewState("write "+name, "archive writer is closed")
	}
	if w.broken != nil {
		return errors.NewState("write "+name, "archive is incomplete after a failed write")
	}
	if err := validation.ValidateEntryName(name); err != nil {
		return &errors.ValidationError{Field: "name", Value: name, Message: err.Error(), Err: err}
	}
	if w.names[name] {
		return &errors.ValidationError{Field: "name", Value: name, Message: "duplicate array name " + name}
	}

	h, payload, err := npy.Encode(a, w.opts.npyOptions())
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	header, err := h.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}

	fh := &zip.FileHeader{
		Name:         name + Suffix,
		Method:       w.opts.Compression.method(),
		ModifiedDate: dosEpoch,
	}

	var member io.Writer
	if w.opts.Compression == Stored {
		crc := crc32.NewIEEE()
		crc.Write(header)
		if _, err := payload.WriteTo(crc); err != nil {
			return errors.Wrapf(err, "checksum %s", name)
		}
		size := uint64(len(header)) + uint64(payload.Size())
		fh.CRC32 = crc.Sum32()
		fh.CompressedSize64 = size
		fh.UncompressedSize64 = size
		member, err = w.zw.CreateRaw(fh)
	} else {
		member, err = w.zw.CreateHeader(fh)
	}
	if err != nil {
		w.broken = errors.Wrapf(err, "create member %s", fh.Name)
		return w.broken
	}

	if _, err := member.Write(header); err != nil {
		w.broken = errors.Wrapf(err, "write member %s", fh.Name)
		return w.broken
	}
	if _, err := payload.WriteTo(member); err != nil {
		w.broken = errors.Wrapf(err, "write member %s", fh.Name)
		return w.broken
	}

	w.names[name] = true
	logging.Debug("npz member written",
		"name", name,
		"descr", h.Descr(),
		"shape", h.Shape,
		"compression", w.opts.Compression.String(),
	)
	return nil
}

// Close writes the central directory and releases the destination. A file
// destination is renamed into place only if the archive is complete;
// otherwise it is discarded and the error that broke the archive returned.
func (w *Writer) Close() error {
	if w.closed {
		return errors.NewState("close", "archive writer is closed")
	}
	if w.broken != nil {
		logging.Error("npz archive incomplete, discarding", "arrays", len(w.names), "error", w.broken)
		w.Abort()
		return w.broken
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		if w.dst != nil {
			w.dst.Abort()
		}
		return errors.Wrap(err, "finish archive")
	}
	if w.dst != nil {
		if err := w.dst.Close(); err != nil {
			return errors.Wrap(err, "close archive")
		}
	}
	return nil
}

// Abort abandons the archive. A file destination is removed; a caller-owned
// writer is left with whatever was already written. Abort after Close or
// Abort is a no-op.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.dst != nil {
		if err := w.dst.Abort(); err != nil {
			return errors.Wrap(err, "discard archive")
		}
	}
	logging.Debug("npz archive discarded", "arrays", len(w.names))
	return nil
}
