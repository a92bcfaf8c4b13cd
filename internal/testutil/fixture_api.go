package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/config"
	"github.com/staffdesk/staffdesk/internal/remote"
)

// DevIdentity is the session the default fixtures accept.
var DevIdentity = auth.Identity{UserID: api.DevUserID, Token: api.DevToken}

// FixtureAPI is a fixture API server running on a local plain-HTTP port.
type FixtureAPI struct {
	Store  *api.Store
	Server *httptest.Server
}

// NewFixtureAPI serves f, or api.DefaultFixtures when f is nil, until the
// test ends.
func NewFixtureAPI(t *testing.T, f *api.Fixtures) *FixtureAPI {
	t.Helper()
	if f == nil {
		f = api.DefaultFixtures()
	}
	store, err := api.NewStore(f)
	MustNoErr(t, err, "load fixtures")

	srv := api.NewServer(&config.Config{}, store, nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return &FixtureAPI{Store: store, Server: ts}
}

// URL returns the server's base URL.
func (a *FixtureAPI) URL() string { return a.Server.URL }

// Client returns an API client for the server that retries without delay.
func (a *FixtureAPI) Client(t *testing.T) *remote.Client {
	t.Helper()
	client, err := remote.New(remote.Config{
		BaseURL:       a.Server.URL,
		AllowInsecure: true,
		HTTPClient:    a.Server.Client(),
		RetryDelay:    time.Millisecond,
	})
	MustNoErr(t, err, "create client")
	return client
}

// WriteAuthStorage writes an auth-storage document for id into dir, the
// way the platform's login flow persists it, and returns its path.
func WriteAuthStorage(t *testing.T, dir string, id auth.Identity) string {
	t.Helper()
	user := "null"
	if id.UserID != "" {
		user = fmt.Sprintf(`{"id":%q}`, id.UserID)
	}
	doc := fmt.Sprintf(`{"state":{"user":%s,"token":%q},"version":0}`, user, id.Token)
	return WriteFile(t, dir, "auth-storage.json", []byte(doc))
}
