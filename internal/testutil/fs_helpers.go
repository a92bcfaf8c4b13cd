package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// validateRelativePath rejects names that would land outside dir.
func validateRelativePath(dir, name string) error {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return fmt.Errorf("path must be relative to the test home: %s", name)
	}
	rel, err := filepath.Rel(dir, filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path leaves the test home: %s", name)
	}
	return nil
}

// WriteFile writes content under dir (a test home) and returns the full path.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	if err := validateRelativePath(dir, name); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	path := filepath.Join(dir, filepath.Clean(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// SnapshotFile returns the only snapshot of resource in ext format under
// home's snapshots directory, failing the test when there is not exactly one.
func SnapshotFile(t *testing.T, home, resource, ext string) string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(home, "snapshots", resource+"-*."+ext))
	if err != nil {
		t.Fatalf("glob snapshots: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("%s %s snapshots = %v, want exactly one", resource, ext, files)
	}
	return files[0]
}

// ReadFile reads a file and fails the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return content
}

// MustNotExist fails the test if path exists or cannot be checked.
func MustNotExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	if err == nil {
		t.Fatalf("expected %s to not exist", path)
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
}
