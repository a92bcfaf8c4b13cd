package api_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/listview"
	"github.com/staffdesk/staffdesk/internal/remote"
)

// startFixtureServer serves DefaultFixtures over plain HTTP.
func startFixtureServer(t *testing.T) *remote.Client {
	t.Helper()
	store, err := api.NewStore(api.DefaultFixtures())
	if err != nil {
		t.Fatal(err)
	}
	srv := api.NewServer(&config.Config{}, store, nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	c, err := remote.New(remote.Config{
		BaseURL:       ts.URL,
		AllowInsecure: true,
		HTTPClient:    ts.Client(),
		RetryDelay:    time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

var devIdentity = auth.Identity{UserID: api.DevUserID, Token: api.DevToken}

func TestRoundTrip_EveryEnvelopeDecodes(t *testing.T) {
	c := startFixtureServer(t)
	ctx := context.Background()

	for _, res := range catalog.All() {
		t.Run(res.Name, func(t *testing.T) {
			parent := ""
			if res.Scope == catalog.ScopeParent {
				parent = "1"
			}
			recs, err := remote.NewCollection(c, res, devIdentity, parent).Fetch(ctx)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if len(recs) == 0 {
				t.Error("no records decoded")
			}
		})
	}
}

func TestRoundTrip_ControllerDelete(t *testing.T) {
	c := startFixtureServer(t)
	ctx := context.Background()
	res, _ := catalog.Lookup("jobs")

	rec := &listview.Recorder{}
	ctrl := remote.NewCollection(c, res, devIdentity, "").NewController(0, rec, nil)
	ctrl.Load(ctx)

	st := ctrl.State()
	if st.Err != nil {
		t.Fatalf("load error: %v", st.Err)
	}
	before := len(st.Records)
	id := res.ID(st.PageSlice[0])

	if err := ctrl.DeleteRecord(ctx, id); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if got := len(ctrl.State().Records); got != before-1 {
		t.Errorf("records after delete = %d, want %d", got, before-1)
	}
	var success bool
	for _, n := range rec.Drain() {
		if n.Level == listview.LevelSuccess {
			success = true
		}
	}
	if !success {
		t.Error("no success notification after delete")
	}
}

func TestRoundTrip_RejectedDeleteIsServerError(t *testing.T) {
	c := startFixtureServer(t)
	res, _ := catalog.Lookup("admins")

	err := remote.NewCollection(c, res, devIdentity, "").Delete(context.Background(), "1")
	if got := remote.StatusCode(err); got != 500 {
		t.Fatalf("StatusCode = %d (%v), want 500", got, err)
	}
}

func TestRoundTrip_CreateAndValidation(t *testing.T) {
	c := startFixtureServer(t)
	ctx := context.Background()
	res, _ := catalog.Lookup("documents")
	coll := remote.NewCollection(c, res, devIdentity, "1")

	created, err := coll.Create(ctx, map[string]string{
		"title":     "Handbook",
		"file_name": "handbook.pdf",
		"url":       "https://files.example.test/handbook.pdf",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Get("folder_id") != "1" || res.ID(created) == "" {
		t.Errorf("created = %s", created.Raw())
	}

	// Bypass local validation to see the server's 422.
	_, err = c.WithTokenSource(devIdentity.TokenSource()).Create(ctx, res, map[string]string{"title": ""})
	var verr *remote.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(verr.Fields["url"]) == 0 || len(verr.Fields["title"]) == 0 {
		t.Errorf("fields = %v", verr.Fields)
	}
}

func TestRoundTrip_BadTokenIsUnauthorized(t *testing.T) {
	c := startFixtureServer(t)
	res, _ := catalog.Lookup("clients")

	_, err := remote.NewCollection(c, res, auth.Identity{Token: "stale"}, "").Fetch(context.Background())
	if got := remote.StatusCode(err); got != 401 {
		t.Fatalf("StatusCode = %d (%v), want 401", got, err)
	}
	if msg := remote.Describe(err); msg == "" {
		t.Error("Describe returned nothing for 401")
	}
}
