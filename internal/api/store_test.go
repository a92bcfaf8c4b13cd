package api

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

func TestDefaultFixtures(t *testing.T) {
	store, err := NewStore(DefaultFixtures())
	if err != nil {
		t.Fatalf("NewStore(DefaultFixtures()) = %v", err)
	}

	counts := store.Counts()
	for _, res := range catalog.All() {
		if counts[res.Name] == 0 {
			t.Errorf("%s has no demo records", res.Name)
		}
	}
	if counts["jobs"] <= 10 {
		t.Errorf("jobs = %d, want more than one page", counts["jobs"])
	}

	if user, ok := store.SessionUser(DevToken); !ok || user != DevUserID {
		t.Errorf("SessionUser(DevToken) = %q, %v", user, ok)
	}

	folders, err := store.List("folders", DevUserID)
	if err != nil || len(folders) != 10 {
		t.Errorf("folders for dev user = %d, %v; want 10", len(folders), err)
	}
	users, err := store.List("client-users", "1")
	if err != nil || len(users) == 0 {
		t.Errorf("client-users of client 1 = %d, %v", len(users), err)
	}
}

func TestNewStoreRejectsBadFixtures(t *testing.T) {
	tests := []struct {
		name string
		f    *Fixtures
	}{
		{"unknown resource", &Fixtures{Resources: map[string]FixtureResource{"payroll": {}}}},
		{"unknown envelope", &Fixtures{Resources: map[string]FixtureResource{"clients": {Envelope: "xml"}}}},
		{"non-object record", &Fixtures{Resources: map[string]FixtureResource{
			"clients": {Records: []json.RawMessage{json.RawMessage(`[1]`)}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStore(tt.f); err == nil {
				t.Error("NewStore() = nil error")
			}
		})
	}
}

func TestNewStoreNilFixtures(t *testing.T) {
	store, err := NewStore(nil)
	if err != nil {
		t.Fatal(err)
	}
	if store.HasSessions() {
		t.Error("empty store has sessions")
	}
	if got := store.Envelope("clients"); got != EnvelopeData {
		t.Errorf("default envelope = %q, want data", got)
	}
	if len(store.Names()) != len(catalog.All()) {
		t.Errorf("Names() = %v", store.Names())
	}
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	doc := `{
  "sessions": {"abc": "7"},
  "resources": {
    "admins": {"envelope": "bare", "fail_deletes": true, "records": [{"id": 1, "name": "Root"}]}
  }
}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFixtures(path)
	if err != nil {
		t.Fatalf("LoadFixtures: %v", err)
	}
	store, err := NewStore(f)
	if err != nil {
		t.Fatal(err)
	}
	if store.Envelope("admins") != EnvelopeBare {
		t.Errorf("envelope = %q", store.Envelope("admins"))
	}
	if err := store.Delete("admins", "1"); !errors.Is(err, ErrDeleteRejected) {
		t.Errorf("Delete = %v, want ErrDeleteRejected", err)
	}
	if user, _ := store.SessionUser("abc"); user != "7" {
		t.Errorf("session user = %q", user)
	}

	if _, err := LoadFixtures(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFixtures(missing) = nil error")
	}
}

func TestStoreUpdateKeepsID(t *testing.T) {
	store, err := NewStore(testFixtures())
	if err != nil {
		t.Fatal(err)
	}
	store.now = func() time.Time { return time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC) }

	rec, err := store.Update("clients", "1", map[string]any{"id": "99", "company": "Hooli"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := rec.Get("id"); got != "1" {
		t.Errorf("id = %q, want 1", got)
	}
	if got := rec.Get("company"); got != "Hooli" {
		t.Errorf("company = %q", got)
	}
	if got := rec.Get("updated_at"); got != "2026-02-03T04:05:06Z" {
		t.Errorf("updated_at = %q", got)
	}
}

func TestStoreListIsACopy(t *testing.T) {
	store, err := NewStore(testFixtures())
	if err != nil {
		t.Fatal(err)
	}
	recs, _ := store.List("clients", "")
	recs[0] = catalog.MustRecord(map[string]any{"id": 1, "name": "mutated"})

	again, _ := store.List("clients", "")
	if again[0].Get("name") != "Ada Lovelace" {
		t.Error("List result aliases the store")
	}
}
