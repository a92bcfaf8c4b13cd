package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantUser  string
		wantToken string
	}{
		{
			name:      "numeric id",
			data:      `{"state":{"user":{"id":42,"name":"Ops"},"token":"abc"},"version":0}`,
			wantUser:  "42",
			wantToken: "abc",
		},
		{
			name:      "string id",
			data:      `{"state":{"user":{"id":"u-7"},"token":"t"}}`,
			wantUser:  "u-7",
			wantToken: "t",
		},
		{
			name:      "double encoded state",
			data:      `{"state":"{\"user\":{\"id\":9},\"token\":\"z\"}"}`,
			wantUser:  "9",
			wantToken: "z",
		},
		{
			name: "signed out",
			data: `{"state":{"user":null,"token":null}}`,
		},
		{
			name: "empty document",
			data: ``,
		},
		{
			name:      "token without user",
			data:      `{"state":{"token":"only"}}`,
			wantToken: "only",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatalf("Parse error = %v", err)
			}
			if id.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", id.UserID, tt.wantUser)
			}
			if id.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", id.Token, tt.wantToken)
			}
		})
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"state":`)); err == nil {
		t.Fatal("Parse should reject malformed JSON")
	}
}

func TestLoad_MissingFileIsSignedOut(t *testing.T) {
	id, err := Load(filepath.Join(t.TempDir(), "auth-storage.json"))
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if id.HasToken() || id.HasUser() {
		t.Errorf("Load of missing file = %+v, want empty identity", id)
	}
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth-storage.json")
	if err := os.WriteFile(path, []byte(`{"state":{"user":{"id":3},"token":"tok"}}`), 0600); err != nil {
		t.Fatal(err)
	}
	id, err := Load(path)
	if err != nil {
		t.Fatalf("Load error = %v", err)
	}
	if id.UserID != "3" || id.Token != "tok" {
		t.Errorf("Load = %+v", id)
	}
}

func TestRequire(t *testing.T) {
	full := Identity{UserID: "1", Token: "t"}
	if err := full.Require(true, true); err != nil {
		t.Errorf("Require on full identity = %v", err)
	}

	noToken := Identity{UserID: "1"}
	if err := noToken.Require(true, false); !errors.Is(err, ErrMissing) {
		t.Errorf("Require(token) without token = %v, want ErrMissing", err)
	}
	if err := noToken.Require(false, true); err != nil {
		t.Errorf("Require(user) with user = %v", err)
	}

	noUser := Identity{Token: "t"}
	if err := noUser.Require(false, true); !errors.Is(err, ErrMissing) {
		t.Errorf("Require(user) without user = %v, want ErrMissing", err)
	}
	if err := (Identity{}).Require(false, false); err != nil {
		t.Errorf("Require(nothing) = %v", err)
	}
}

func TestTokenSource(t *testing.T) {
	if ts := (Identity{}).TokenSource(); ts != nil {
		t.Error("TokenSource without token should be nil")
	}
	ts := Identity{Token: "secret"}.TokenSource()
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "secret" || tok.Type() != "Bearer" {
		t.Errorf("token = %+v", tok)
	}
}
