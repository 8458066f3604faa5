// Package fileutil provides file helpers shared by the codecs and the CLI.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/sequential"
)

// AtomicFile collects writes in a temporary file next to its destination.
// Close renames the temporary file into place; Abort removes it and leaves
// any existing destination untouched.
type AtomicFile struct {
	f    *os.File
	path string
	perm os.FileMode
	done bool
}

// CreateAtomic starts an atomic write of path. The destination directory
// must exist.
func CreateAtomic(path string, perm os.FileMode) (*AtomicFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Lstat(abs); err == nil && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	f, err := sequential.CreateTemp(filepath.Dir(abs), ".tmp-"+filepath.Base(abs))
	if err != nil {
		return nil, err
	}
	return &AtomicFile{f: f, path: abs, perm: perm}, nil
}

// Name returns the destination path.
func (a *AtomicFile) Name() string { return a.path }

func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, os.ErrClosed
	}
	return a.f.Write(p)
}

// Close syncs the temporary file and renames it to the destination. The
// temporary file is removed if any step fails.
func (a *AtomicFile) Close() error {
	if a.done {
		return os.ErrClosed
	}
	a.done = true

	tmp := a.f.Name()
	err := a.f.Sync()
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, a.perm)
	}
	if err == nil {
		err = os.Rename(tmp, a.path)
	}
	if err != nil {
		os.Remove(tmp)
	}
	return err
}

// Abort discards everything written. It is a no-op after Close or Abort.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true

	tmp := a.f.Name()
	cerr := a.f.Close()
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if errors.Is(cerr, os.ErrClosed) {
		return nil
	}
	return cerr
}
