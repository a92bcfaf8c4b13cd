// Package fileutil writes files that hold platform data (snapshots, logs)
// with owner-only permissions. On Windows, owner-only modes
// (perm & 0077 == 0) additionally get a DACL restricting access to the
// current user.
package fileutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OwnerOnlyFile and OwnerOnlyDir are the modes used for exported data.
const (
	OwnerOnlyFile os.FileMode = 0o600
	OwnerOnlyDir  os.FileMode = 0o700
)

// MkdirAll creates path and any missing parents with perm.
func MkdirAll(path string, perm os.FileMode) error {
	return secureMkdirAll(path, perm)
}

// WriteFileAtomic writes data to path so that readers see either the old
// file or the complete new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic streams fill into a temp file next to path, then renames it
// into place. The temp file is removed if anything fails.
func WriteAtomic(path string, perm os.FileMode, fill func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = fill(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err = restrict(tmpName, perm); err != nil {
		return fmt.Errorf("set permissions on %s: %w", path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// OpenAppend opens path for appending, creating it with perm.
func OpenAppend(path string, perm os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
	if err != nil {
		return nil, err
	}
	if err := restrict(path, perm); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
