package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// ErrFilesystem matches every *FilesystemError via errors.Is.
var ErrFilesystem = errors.New("filesystem failure")

// FilesystemError reports a directory or file operation that could not be completed.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func (e *FilesystemError) Is(target error) bool { return target == ErrFilesystem }

// IsFilesystem reports whether err carries a *FilesystemError.
func IsFilesystem(err error) bool {
	var e *FilesystemError
	return errors.As(err, &e)
}

// EnsureDir creates path and any missing parents. An existing directory is not an error;
// an existing non-directory is.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &FilesystemError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// WriteFileAtomic writes data to dir/name through a temp file in the same directory and a rename.
// An existing file with the same name is replaced.
func WriteFileAtomic(dir, name string, data []byte) error {
	return WriteAtomic(dir, name, func(w io.Writer) error {
		return writeAll(w, data)
	})
}

// WriteAtomic is WriteFileAtomic for callers that stream their output (encoders).
func WriteAtomic(dir, name string, write func(io.Writer) error) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)

	// dot-prefixed so half-written files never match the frame/json globs
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return &FilesystemError{Op: "create temp", Path: dst, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return &FilesystemError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &FilesystemError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return &FilesystemError{Op: "rename", Path: dst, Err: err}
	}
	_ = syncDirBestEffort(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func syncDirBestEffort(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
