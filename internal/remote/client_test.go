package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

func TestNew_RejectsHTTPWithoutAllowInsecure(t *testing.T) {
	_, err := New(Config{BaseURL: "http://api.local:8080"})
	if err == nil {
		t.Fatal("New() should reject http:// without AllowInsecure")
	}
}

func TestNew_AllowsHTTPWithAllowInsecure(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:8080", AllowInsecure: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c == nil {
		t.Fatal("New() returned nil client")
	}
}

func TestNew_RejectsEmptyURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() should reject empty URL")
	}
}

func TestNew_RejectsInvalidScheme(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://api.local"})
	if err == nil {
		t.Fatal("New() should reject ftp:// scheme")
	}
	if !strings.Contains(err.Error(), "http or https") {
		t.Errorf("error = %q, want mention of http or https", err.Error())
	}
}

func TestNew_RejectsMissingHost(t *testing.T) {
	if _, err := New(Config{BaseURL: "https:///v1"}); err == nil {
		t.Fatal("New() should reject a URL without host")
	}
}

func TestNew_TrimsTrailingSlashAndDefaults(t *testing.T) {
	c, err := New(Config{BaseURL: "https://api.local/v1/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.BaseURL() != "https://api.local/v1" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", c.BaseURL())
	}
	if c.httpClient.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, defaultTimeout)
	}
}

// newTestClient creates a Client pointing at the given TLS test server.
func newTestClient(t *testing.T, srv *httptest.Server, token string, retries int) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Retries:    retries,
		RetryDelay: time.Millisecond,
	}
	if token != "" {
		cfg.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func mustResource(t *testing.T, name string) catalog.Resource {
	t.Helper()
	res, ok := catalog.Lookup(name)
	if !ok {
		t.Fatalf("resource %q not in catalog", name)
	}
	return res
}

func TestFetchCollection_SetsHeaders(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		if r.URL.Path != "/client-users/42" {
			t.Errorf("path = %q, want /client-users/42", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "secret", 0)
	if _, err := c.FetchCollection(context.Background(), mustResource(t, "client-users"), "42"); err != nil {
		t.Fatalf("FetchCollection error = %v", err)
	}
}

func TestFetchCollection_OmitsAuthWithoutToken(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization should be empty, got %q", got)
		}
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 0)
	if _, err := c.FetchCollection(context.Background(), mustResource(t, "booked-properties"), ""); err != nil {
		t.Fatalf("FetchCollection error = %v", err)
	}
}

func TestFetchCollection_Envelopes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs []string
		wantErr error
	}{
		{"bare array", `[{"id":1},{"id":2},{"id":3}]`, []string{"1", "2", "3"}, nil},
		{"data envelope", `{"success":true,"data":[{"id":"a"}]}`, []string{"a"}, nil},
		{"keyed envelope", `{"success":true,"clients":[{"id":5},{"id":6}]}`, []string{"5", "6"}, nil},
		{"nested keyed", `{"data":{"clients":[{"id":7}]}}`, []string{"7"}, nil},
		{"unsuccessful", `{"success":false}`, nil, ErrUnsuccessful},
		{"unsuccessful with message", `{"success":false,"message":"quota exceeded"}`, nil, ErrUnsuccessful},
		{"object without list", `{"success":true,"data":{"count":0}}`, nil, nil},
		{"scalar", `"hello"`, nil, nil},
		{"not json", `<html>`, nil, nil},
		{"empty", ``, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewTLSServer(jsonHandler(http.StatusOK, tt.body))
			defer srv.Close()

			c := newTestClient(t, srv, "tok", 0)
			res := mustResource(t, "clients")
			recs, err := c.FetchCollection(context.Background(), res, "")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FetchCollection error = %v", err)
			}
			if len(recs) != len(tt.wantIDs) {
				t.Fatalf("got %d records, want %d", len(recs), len(tt.wantIDs))
			}
			for i, rec := range recs {
				if got := res.ID(rec); got != tt.wantIDs[i] {
					t.Errorf("record %d id = %q, want %q", i, got, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestFetchCollection_UnsuccessfulMessage(t *testing.T) {
	srv := httptest.NewTLSServer(jsonHandler(http.StatusOK, `{"success":false,"message":"quota exceeded"}`))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 0)
	_, err := c.FetchCollection(context.Background(), mustResource(t, "jobs"), "")
	if got := Describe(err); got != "quota exceeded" {
		t.Errorf("Describe = %q, want server message", got)
	}
}

func TestFetchCollection_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1}]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 2)
	recs, err := c.FetchCollection(context.Background(), mustResource(t, "jobs"), "")
	if err != nil {
		t.Fatalf("FetchCollection error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("got %d records, want 1", len(recs))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestFetchCollection_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"db_error","message":"database locked"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 1)
	_, err := c.FetchCollection(context.Background(), mustResource(t, "jobs"), "")
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("err = %v, want API error 500", err)
	}
	if !strings.Contains(err.Error(), "database locked") {
		t.Errorf("error = %q, want mention of 'database locked'", err.Error())
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestFetchCollection_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 3)
	_, err := c.FetchCollection(context.Background(), mustResource(t, "jobs"), "")
	if StatusCode(err) != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
	if got := Describe(err); !strings.Contains(got, "Sign in again") {
		t.Errorf("Describe = %q", got)
	}
}

func TestFetchCollection_NetworkError(t *testing.T) {
	srv := httptest.NewTLSServer(jsonHandler(http.StatusOK, `[]`))
	c := newTestClient(t, srv, "tok", 0)
	srv.Close()

	_, err := c.FetchCollection(context.Background(), mustResource(t, "jobs"), "")
	if !IsNetwork(err) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if got := Describe(err); !strings.Contains(got, "Could not reach the server") {
		t.Errorf("Describe = %q", got)
	}
}

func TestFetchCollection_OversizedBodyIsAnError(t *testing.T) {
	body := `[{"id":1,"name":"Grace Allen"},{"id":2,"name":"Ada Lovelace"}]`
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		jsonHandler(http.StatusOK, body)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "", 2)
	c.maxBody = int64(len(body)) - 1
	recs, err := c.FetchCollection(context.Background(), mustResource(t, "booked-properties"), "")
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("FetchCollection() = %d records, %v; want ErrBodyTooLarge", len(recs), err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want no retries", n)
	}

	c.maxBody = int64(len(body))
	recs, err = c.FetchCollection(context.Background(), mustResource(t, "booked-properties"), "")
	if err != nil || len(recs) != 2 {
		t.Errorf("body at the limit: %d records, %v", len(recs), err)
	}
}

func TestDelete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 0)
	if err := c.Delete(context.Background(), mustResource(t, "invoices"), "inv-9"); err != nil {
		t.Fatalf("Delete error = %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/invoices/inv-9" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestDelete_FailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 3)
	err := c.Delete(context.Background(), mustResource(t, "invoices"), "1")
	if StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("err = %v, want 500", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestCreate_SendsBodyAndDecodesRecord(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/invoices" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if amount, ok := body["amount"].(float64); !ok || amount != 99.5 {
			t.Errorf("amount = %#v, want number 99.5", body["amount"])
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"new-1","number":"INV-7"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 0)
	rec, err := c.Create(context.Background(), mustResource(t, "invoices"), map[string]string{"number": "INV-7", "amount": "99.5"})
	if err != nil {
		t.Fatalf("Create error = %v", err)
	}
	if rec.Get("id") != "new-1" {
		t.Errorf("created id = %q", rec.Get("id"))
	}
}

func TestUpdate_ValidationError(t *testing.T) {
	srv := httptest.NewTLSServer(jsonHandler(http.StatusUnprocessableEntity,
		`{"message":"The given data was invalid.","errors":{"email":["The email has already been taken."],"name":["Too short.","Reserved."]}}`))
	defer srv.Close()

	c := newTestClient(t, srv, "tok", 0)
	_, err := c.Update(context.Background(), mustResource(t, "clients"), "1", map[string]string{"email": "x@y.z"})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if got := ve.Fields["email"]; len(got) != 1 || got[0] != "The email has already been taken." {
		t.Errorf("email errors = %v", got)
	}
	if got := ve.Fields["name"]; len(got) != 2 {
		t.Errorf("name errors = %v, want 2 messages", got)
	}
	if StatusCode(err) != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

func TestHandleErrorResponse_PlainTextBody(t *testing.T) {
	err := handleErrorResponse(&http.Response{StatusCode: 500}, []byte("internal server error"))
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should contain status code, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "internal server error") {
		t.Errorf("error should contain body text, got: %s", err.Error())
	}
}

func TestHandleErrorResponse_EmptyBody(t *testing.T) {
	err := handleErrorResponse(&http.Response{StatusCode: 404}, nil)
	if !strings.Contains(err.Error(), "Not Found") {
		t.Errorf("error = %q, want status text", err.Error())
	}
}
