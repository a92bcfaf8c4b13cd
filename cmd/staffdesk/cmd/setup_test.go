package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/staffdesk/staffdesk/internal/api"
	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/testutil"
)

// cliEnv is a staffdesk home directory pointing at a fixture API server.
type cliEnv struct {
	home  string
	url   string
	store *api.Store
}

// newCLIEnv serves the default fixtures and signs in as the dev user.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return newCLIEnvWith(t, api.DefaultFixtures())
}

func newCLIEnvWith(t *testing.T, f *api.Fixtures) *cliEnv {
	t.Helper()
	fixture := testutil.NewFixtureAPI(t, f)

	env := &cliEnv{home: t.TempDir(), url: fixture.URL(), store: fixture.Store}
	env.writeConfig(t, "")
	env.signIn(t, testutil.DevIdentity)

	saved := stdinIsTerminal
	stdinIsTerminal = func() bool { return false }
	t.Cleanup(func() { stdinIsTerminal = saved })
	return env
}

// writeConfig writes config.toml: the API section plus extra.
func (e *cliEnv) writeConfig(t *testing.T, extra string) {
	t.Helper()
	body := fmt.Sprintf("[api]\nbase_url = %q\nallow_insecure = true\nretries = 0\n\n%s", e.url, extra)
	testutil.WriteFile(t, e.home, "config.toml", []byte(body))
}

// signIn writes the auth-storage document for id.
func (e *cliEnv) signIn(t *testing.T, id auth.Identity) {
	t.Helper()
	testutil.WriteAuthStorage(t, e.home, id)
}

// signOut removes the auth-storage document.
func (e *cliEnv) signOut(t *testing.T) {
	t.Helper()
	testutil.MustNoErr(t, os.Remove(filepath.Join(e.home, "auth-storage.json")), "remove auth storage")
}

// run executes the real root command against the environment.
//
// NOTE: commands share package-level flag variables; tests using run must
// NOT use t.Parallel().
func (e *cliEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--home", e.home}, args...))
	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag to its default so runs do not leak into
// each other.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
