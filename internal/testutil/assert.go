package testutil

import (
	"strings"
	"testing"
)

// AssertContainsAll reports every substring of subs missing from got.
func AssertContainsAll(t *testing.T, got string, subs ...string) {
	t.Helper()
	for _, sub := range subs {
		if !strings.Contains(got, sub) {
			t.Errorf("output should contain %q:\n%s", sub, got)
		}
	}
}

// MustNoErr stops the test on a setup error.
func MustNoErr(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
