// Package auth reads the signed-in staff identity from the persisted
// auth-storage document written by the platform's login flow.
//
// The document is owned by another program; staffdesk only reads it:
//
//	{"state": {"user": {"id": 42, ...}, "token": "..."}, "version": 0}
package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// ErrMissing is wrapped by every error caused by an absent credential.
// Screens that see it ask the user to sign in again instead of retrying.
var ErrMissing = errors.New("not signed in")

// Identity is the signed-in staff member as far as API calls are concerned.
type Identity struct {
	UserID string
	Token  string
}

// HasToken reports whether a bearer token is available.
func (id Identity) HasToken() bool { return id.Token != "" }

// HasUser reports whether a user id is available.
func (id Identity) HasUser() bool { return id.UserID != "" }

// Require returns an ErrMissing-wrapped error when the identity lacks
// what a request needs.
func (id Identity) Require(token, user bool) error {
	switch {
	case token && !id.HasToken():
		return fmt.Errorf("%w: no session token", ErrMissing)
	case user && !id.HasUser():
		return fmt.Errorf("%w: no stored user id", ErrMissing)
	}
	return nil
}

// TokenSource returns a static bearer token source, or nil without a token.
func (id Identity) TokenSource() oauth2.TokenSource {
	if !id.HasToken() {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: id.Token, TokenType: "Bearer"})
}

// Parse extracts the identity from an auth-storage document. The user id
// may be stored as a number or a string. Missing fields yield an empty
// Identity rather than an error; only malformed JSON fails.
func Parse(data []byte) (Identity, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Identity{}, nil
	}
	if !gjson.ValidBytes(data) {
		return Identity{}, fmt.Errorf("auth storage is not valid JSON")
	}

	state := gjson.GetBytes(data, "state")
	// Some writers double-encode the persisted state as a JSON string.
	if state.Type == gjson.String && gjson.Valid(state.Str) {
		state = gjson.Parse(state.Str)
	}

	return Identity{
		UserID: scalar(state.Get("user.id")),
		Token:  scalar(state.Get("token")),
	}, nil
}

// scalar renders numbers and strings; objects, arrays, null and booleans
// are not usable identifiers.
func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

// Load reads the auth-storage document at path. A missing file is not an
// error: it means nobody is signed in.
func Load(path string) (Identity, error) {
	if path == "" {
		return Identity{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Identity{}, nil
		}
		return Identity{}, fmt.Errorf("read auth storage: %w", err)
	}
	id, err := Parse(data)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", path, err)
	}
	return id, nil
}
