package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/internal/catalog"
	"github.com/staffdesk/staffdesk/internal/remote"
)

// stdinIsTerminal reports whether prompts can be shown. Tests replace it.
var stdinIsTerminal = func() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stdoutIsTerminal reports whether stdout is an interactive terminal.
var stdoutIsTerminal = func() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// lookupResource resolves a resource name from the command line.
func lookupResource(name string) (catalog.Resource, error) {
	res, ok := catalog.Lookup(name)
	if !ok {
		return catalog.Resource{}, fmt.Errorf("unknown resource %q (available: %s)",
			name, strings.Join(catalog.Names(), ", "))
	}
	return res, nil
}

// loadIdentity reads the signed-in staff member from the auth storage.
func loadIdentity() (auth.Identity, error) {
	id, err := auth.Load(cfg.Auth.Storage)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("read auth storage: %w", err)
	}
	return id, nil
}

// newClient builds the API client from [api] in config.toml.
func newClient() (*remote.Client, error) {
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("API base URL not configured\n\nAdd to %s:\n\n  [api]\n  base_url = \"https://api.example.com\"",
			cfg.ConfigFilePath())
	}
	return remote.New(remote.Config{
		BaseURL:       cfg.API.BaseURL,
		AllowInsecure: cfg.API.AllowInsecure,
		Timeout:       cfg.API.Timeout(),
		Retries:       cfg.API.Retries,
		UserAgent:     "staffdesk/" + Version,
		Logger:        logger,
	})
}

// requireParent rejects a missing --parent for nested resources.
func requireParent(res catalog.Resource, parentID string) error {
	if res.Scope == catalog.ScopeParent && parentID == "" {
		return fmt.Errorf("%s belong to a %s: pass --parent <id>", res.Name, res.Parent)
	}
	return nil
}

// openCollection opens res as the signed-in identity.
func openCollection(res catalog.Resource, parentID string) (*remote.Collection, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	identity, err := loadIdentity()
	if err != nil {
		return nil, err
	}
	return remote.NewCollection(client, res, identity, parentID), nil
}

// explain adds a next step to errors the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, auth.ErrMissing):
		return fmt.Errorf("%w\n\nSign in to the platform, or point [auth] storage in %s at the auth-storage document (now %s)",
			err, cfg.ConfigFilePath(), cfg.Auth.Storage)
	case remote.IsNetwork(err):
		return fmt.Errorf("%w\n\nCheck [api] base_url in %s (now %s)", err, cfg.ConfigFilePath(), cfg.API.BaseURL)
	}
	return err
}

// printFieldErrors writes one line per rejected field.
func printFieldErrors(w io.Writer, fe catalog.FieldErrors) {
	for _, field := range fe.Fields() {
		for _, msg := range fe[field] {
			fmt.Fprintf(w, "  %s: %s\n", field, msg)
		}
	}
}
