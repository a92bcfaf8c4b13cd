package testutil

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/staffdesk/staffdesk/internal/auth"
)

func TestNewFixtureAPI(t *testing.T) {
	a := NewFixtureAPI(t, nil)

	resp, err := http.Get(a.URL() + "/health")
	MustNoErr(t, err, "get health")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if got := a.Store.Counts()["clients"]; got != 23 {
		t.Errorf("clients = %d, want 23", got)
	}
	if a.Client(t).BaseURL() != a.URL() {
		t.Error("client does not point at the server")
	}
}

func TestWriteAuthStorage(t *testing.T) {
	dir := t.TempDir()

	path := WriteAuthStorage(t, dir, DevIdentity)
	got, err := auth.Load(path)
	MustNoErr(t, err, "load auth storage")
	if got != DevIdentity {
		t.Errorf("identity = %+v, want %+v", got, DevIdentity)
	}

	path = WriteAuthStorage(t, dir, auth.Identity{Token: "tok"})
	got, err = auth.Load(path)
	MustNoErr(t, err, "load auth storage")
	if got.HasUser() || got.Token != "tok" {
		t.Errorf("identity without user = %+v", got)
	}
}

func TestWriteFile(t *testing.T) {
	home := t.TempDir()
	path := WriteFile(t, home, "snapshots/nested/jobs.json", []byte("[]"))
	if got := string(ReadFile(t, path)); got != "[]" {
		t.Errorf("content = %q", got)
	}
	MustNotExist(t, filepath.Join(home, "snapshots", "clients.json"))
}

func TestSnapshotFile(t *testing.T) {
	home := t.TempDir()
	WriteFile(t, home, "snapshots/jobs-20261019T120000.csv", []byte("id\n"))
	WriteFile(t, home, "snapshots/jobs-20261019T120000.json", []byte("[]"))

	path := SnapshotFile(t, home, "jobs", "csv")
	if filepath.Base(path) != "jobs-20261019T120000.csv" {
		t.Errorf("SnapshotFile = %s", path)
	}
}

func TestValidateRelativePath(t *testing.T) {
	dir := t.TempDir()

	absPath, err := filepath.Abs("/some/path.txt")
	if err != nil {
		t.Fatalf("failed to get absolute path: %v", err)
	}

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"absolute path", absPath, true},
		{"escape dot dot", "../escape.txt", true},
		{"escape dot dot nested", "snapshots/../../escape.txt", true},
		{"escape just dot dot", "..", true},
		{"config", "config.toml", false},
		{"nested", "logs/tui.log", false},
		{"valid current dir", "./auth-storage.json", false},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRelativePath(dir, tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRelativePath() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssertContainsAll(t *testing.T) {
	AssertContainsAll(t, "page 1/3, showing 1-8 of 23", "page 1/3", "of 23")
}
