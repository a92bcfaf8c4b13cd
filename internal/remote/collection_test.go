package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/listview"
)

func TestCollection_MissingTokenMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 0)
	coll := NewCollection(c, mustResource(t, "clients"), auth.Identity{}, "")

	_, err := coll.Fetch(context.Background())
	if !errors.Is(err, auth.ErrMissing) {
		t.Fatalf("Fetch err = %v, want auth.ErrMissing", err)
	}
	if err := coll.Delete(context.Background(), "1"); !errors.Is(err, auth.ErrMissing) {
		t.Fatalf("Delete err = %v, want auth.ErrMissing", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("server saw %d calls, want none", got)
	}
}

func TestCollection_UserScopeNeedsUserID(t *testing.T) {
	coll := NewCollection(&Client{}, mustResource(t, "folders"), auth.Identity{Token: "t"}, "")
	if err := coll.Check(); !errors.Is(err, auth.ErrMissing) {
		t.Errorf("Check = %v, want auth.ErrMissing", err)
	}
}

func TestCollection_ParentScopeNeedsParent(t *testing.T) {
	coll := NewCollection(&Client{}, mustResource(t, "documents"), auth.Identity{Token: "t", UserID: "1"}, "")
	if err := coll.Check(); !errors.Is(err, ErrNoParent) {
		t.Errorf("Check = %v, want ErrNoParent", err)
	}
}

func TestCollection_ScopePaths(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth = r.URL.Path, r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"success":true,"folders":[{"id":1,"name":"Contracts"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 0)
	id := auth.Identity{UserID: "17", Token: "tok"}
	coll := NewCollection(c, mustResource(t, "folders"), id, "")

	recs, err := coll.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if gotPath != "/folders/17" {
		t.Errorf("path = %q, want /folders/17", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want identity token", gotAuth)
	}
	if len(recs) != 1 || recs[0].Get("name") != "Contracts" {
		t.Errorf("records = %v", recs)
	}
}

func TestCollection_PublicResourceSendsNoToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 0)
	coll := NewCollection(c, mustResource(t, "booked-properties"), auth.Identity{Token: "tok"}, "")
	if _, err := coll.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none for a public resource", gotAuth)
	}
}

func TestCollection_CreateFillsParentAndValidates(t *testing.T) {
	var body map[string]any
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"u1"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 0)
	coll := NewCollection(c, mustResource(t, "client-users"), auth.Identity{Token: "tok"}, "c-9")

	_, err := coll.Create(context.Background(), map[string]string{"name": "Bo", "email": "bad"})
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields["email"]) == 0 {
		t.Fatalf("err = %v, want local ValidationError on email", err)
	}
	if body != nil {
		t.Fatal("invalid create reached the server")
	}

	rec, err := coll.Create(context.Background(), map[string]string{"name": "Bo", "email": "bo@acme.test", "role": "member"})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if body["client_id"] != "c-9" {
		t.Errorf("client_id = %v, want parent id", body["client_id"])
	}
	if rec.Get("id") != "u1" {
		t.Errorf("created id = %q", rec.Get("id"))
	}
}

// The controller wired through a Collection keeps records on a failed
// delete and drops them after a successful one.
func TestCollection_ControllerDelete(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `{"success":true,"data":[{"id":1,"name":"A"},{"id":2,"name":"B"}]}`)
		case http.MethodDelete:
			if fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 0)
	coll := NewCollection(c, mustResource(t, "clients"), auth.Identity{Token: "tok"}, "")
	rec := &listview.Recorder{}
	ctrl := coll.NewController(0, rec, nil)

	ctx := context.Background()
	ctrl.Load(ctx)
	if got := len(ctrl.State().Records); got != 2 {
		t.Fatalf("loaded %d records, want 2", got)
	}
	if got := ctrl.State().PageSize; got != 8 {
		t.Errorf("PageSize = %d, want resource default 8", got)
	}

	fail.Store(true)
	if err := ctrl.DeleteRecord(ctx, "1"); err == nil {
		t.Fatal("DeleteRecord should fail on 500")
	}
	if got := len(ctrl.State().Records); got != 2 {
		t.Errorf("records after failed delete = %d, want 2", got)
	}
	notes := rec.Drain()
	if len(notes) != 1 || notes[0].Level != listview.LevelError {
		t.Errorf("notifications = %v, want one error", notes)
	}

	fail.Store(false)
	if err := ctrl.DeleteRecord(ctx, "1"); err != nil {
		t.Fatalf("DeleteRecord error = %v", err)
	}
	st := ctrl.State()
	if len(st.Records) != 1 || st.Records[0].Get("id") != "2" {
		t.Errorf("records after delete = %v", st.Records)
	}
}

func TestCollection_ControllerAuthMissing(t *testing.T) {
	coll := NewCollection(&Client{}, mustResource(t, "clients"), auth.Identity{}, "")
	ctrl := coll.NewController(5, nil, nil)
	ctrl.Load(context.Background())

	st := ctrl.State()
	if !errors.Is(st.Err, auth.ErrMissing) {
		t.Fatalf("state error = %v, want auth.ErrMissing", st.Err)
	}
	if st.Message == "" || st.Empty() {
		t.Errorf("auth failure should be an error state with a message, got %+v", st)
	}
	if st.PageSize != 5 {
		t.Errorf("PageSize = %d, want override 5", st.PageSize)
	}
}
