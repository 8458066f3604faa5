package npz

import (
	"archive/zip"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/npyz/core/errors"
	"github.com/FocuswithJustin/npyz/core/npy"
	"github.com/FocuswithJustin/npyz/internal/logging"
)

// Reader gives access to the arrays of an archive. It is not safe for
// concurrent use.
type Reader struct {
	zr      *zip.Reader
	file    *os.File // nil when the caller owns the source
	opts    Options
	members map[string]*zip.File
	order   []string
	closed  bool
}

// Open opens the archive at path.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.NewIO("stat", path, err)
	}
	r, err := NewReader(f, info.Size(), opts)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}
	r.file = f
	return r, nil
}

// NewReader reads an archive of the given size from ra. Closing the Reader
// does not close ra.
func NewReader(ra io.ReaderAt, size int64, opts Options) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, err
	}
	registerDecompressors(zr)

	r := &Reader{
		zr:      zr,
		opts:    opts,
		members: make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		name, ok := strings.CutSuffix(f.Name, Suffix)
		if !ok || name == "" {
			continue
		}
		if _, dup := r.members[name]; !dup {
			r.order = append(r.order, name)
		}
		r.members[name] = f
	}
	return r, nil
}

func (r *Reader) check(op string) error {
	if r.closed {
		return errors.NewState(op, "archive reader is closed")
	}
	return nil
}

// List returns the array names in archive order.
func (r *Reader) List() ([]string, error) {
	if err := r.check("list"); err != nil {
		return nil, err
	}
	return append([]string(nil), r.order...), nil
}

// Introspect decodes the header of every member without reading payloads.
func (r *Reader) Introspect() ([]Entry, error) {
	if err := r.check("introspect"); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(r.order))
	for _, name := range r.order {
		e, err := r.entry(name, r.members[name])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Stat returns the entry for one array.
func (r *Reader) Stat(name string) (Entry, error) {
	if err := r.check("stat " + name); err != nil {
		return Entry{}, err
	}
	f, err := r.member(name)
	if err != nil {
		return Entry{}, err
	}
	return r.entry(name, f)
}

func (r *Reader) entry(name string, f *zip.File) (Entry, error) {
	rc, err := f.Open()
	if err != nil {
		return Entry{}, errors.Wrapf(err, "open member %s", f.Name)
	}
	defer rc.Close()

	h, err := npy.ReadHeader(rc)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "member %s", f.Name)
	}
	kind, err := h.Kind()
	if err != nil {
		logging.Warn("npz member has an unsupported dtype", "name", name, "descr", h.Descr(), "error", err)
	}
	return Entry{
		Name:           name,
		Header:         h,
		Kind:           kind,
		Method:         methodName(f.Method),
		Size:           f.UncompressedSize64,
		CompressedSize: f.CompressedSize64,
	}, nil
}

// Get decodes the named array.
func (r *Reader) Get(name string) (*npy.Array, error) {
	if err := r.check("get " + name); err != nil {
		return nil, err
	}
	f, err := r.member(name)
	if err != nil {
		return nil, err
	}

	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open member %s", f.Name)
	}
	defer rc.Close()

	a, err := npy.Read(rc, r.opts.npyOptions())
	if err != nil {
		return nil, errors.Wrapf(err, "member %s", f.Name)
	}
	logging.Debug("npz member read", "name", name, "kind", a.Kind().String(), "shape", a.Shape())
	return a, nil
}

// Digest returns the hex BLAKE3-256 digest of the named member's NPY bytes.
func (r *Reader) Digest(name string) (string, error) {
	if err := r.check("digest " + name); err != nil {
		return "", err
	}
	f, err := r.member(name)
	if err != nil {
		return "", err
	}

	rc, err := f.Open()
	if err != nil {
		return "", errors.Wrapf(err, "open member %s", f.Name)
	}
	defer rc.Close()

	h := blake3.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", errors.Wrapf(err, "digest member %s", f.Name)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Raw opens the named member's NPY bytes for copying.
func (r *Reader) Raw(name string) (io.ReadCloser, error) {
	if err := r.check("open " + name); err != nil {
		return nil, err
	}
	f, err := r.member(name)
	if err != nil {
		return nil, err
	}
	return f.Open()
}

func (r *Reader) member(name string) (*zip.File, error) {
	f, ok := r.members[name]
	if !ok {
		return nil, errors.NewNotFound("array", name)
	}
	return f, nil
}

// Close releases the archive file. A second Close fails with a StateError.
func (r *Reader) Close() error {
	if r.closed {
		return errors.NewState("close", "archive reader is closed")
	}
	r.closed = true
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return errors.Wrap(err, "close archive")
		}
	}
	return nil
}
