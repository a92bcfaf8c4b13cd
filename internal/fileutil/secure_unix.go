//go:build !windows

package fileutil

import "os"

func restrict(path string, perm os.FileMode) error {
	return os.Chmod(path, perm)
}

func secureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
