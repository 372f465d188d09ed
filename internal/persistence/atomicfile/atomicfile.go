// Package atomicfile replaces files through a temp file and a rename so a
// reader never observes a partially written target.
package atomicfile

import (
	"io/fs"
	"os"
	"path/filepath"
)

// OpError names the step of Write that failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *OpError) Unwrap() error { return e.Err }

// Hook runs after the temp file is complete and before it replaces the
// target. A non-nil error aborts the write and removes the temp file.
type Hook func(tmpPath string) error

// Write stores data at path. The temp file lives next to path, is synced and
// takes over the mode of the existing file (0644 for new files). On failure
// the previous file is left untouched.
func Write(path string, data []byte, beforeRename Hook) error {
	dir := filepath.Dir(path)
	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &OpError{Op: "create temp", Err: err}
	}
	tmp := f.Name()
	fail := func(op string, err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return &OpError{Op: op, Err: err}
	}

	if _, err := f.Write(data); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Close(); err != nil {
		return fail("close", err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		return fail("chmod", err)
	}
	if beforeRename != nil {
		if err := beforeRename(tmp); err != nil {
			return fail("rename", err)
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		return fail("rename", err)
	}

	// Persist the rename itself; not every platform supports syncing a directory.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
