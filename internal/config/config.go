// Package config handles loading and managing staffdesk configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/staffdesk/staffdesk/internal/catalog"
)

// APIConfig holds platform API client configuration.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	AllowInsecure  bool   `toml:"allow_insecure"`  // Permit http:// base URLs
	TimeoutSeconds int    `toml:"timeout_seconds"` // Per-request timeout (default: 30)
	Retries        int    `toml:"retries"`         // GET retries on transport errors and 5xx (default: 2)
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// AuthConfig points at the auth-storage document.
type AuthConfig struct {
	Storage string `toml:"storage"`
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	DefaultResource string `toml:"default_resource"`
}

// ResourceConfig overrides catalog defaults for one resource.
type ResourceConfig struct {
	PageSize int `toml:"page_size"`
}

// ServerConfig holds fixture API server configuration.
type ServerConfig struct {
	APIPort         int      `toml:"api_port"`  // HTTP server port (default: 8080)
	BindAddr        string   `toml:"bind_addr"` // Bind address (default: 127.0.0.1)
	APIKey          string   `toml:"api_key"`   // Accepted as X-API-Key besides bearer tokens
	Fixtures        string   `toml:"fixtures"`  // Seed file for the in-memory store
	AllowInsecure   bool     `toml:"allow_insecure"`
	CORSOrigins     []string `toml:"cors_origins"`
	CORSCredentials bool     `toml:"cors_credentials"`
	CORSMaxAge      int      `toml:"cors_max_age"`
}

// IsLoopback reports whether the bind address only accepts local
// connections.
func (s ServerConfig) IsLoopback() bool {
	addr := s.BindAddr
	if addr == "" || addr == "localhost" {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose the server beyond loopback without an
// API key, unless AllowInsecure is set.
func (s ServerConfig) ValidateSecure() error {
	if s.IsLoopback() || s.APIKey != "" || s.AllowInsecure {
		return nil
	}
	return fmt.Errorf("refusing to bind to %s without an api_key\n\n"+
		"Options:\n"+
		"  1. Set [server] api_key in config.toml\n"+
		"  2. Bind to loopback: [server] bind_addr = \"127.0.0.1\"\n"+
		"  3. For trusted networks: add 'allow_insecure = true' to [server]", s.BindAddr)
}

// SnapshotSchedule defines a periodic export of one resource.
type SnapshotSchedule struct {
	Resource string `toml:"resource"`
	Schedule string `toml:"schedule"` // Cron expression (e.g., "0 2 * * *" for 2am daily)
	Format   string `toml:"format"`   // json or csv
	Enabled  bool   `toml:"enabled"`
}

// Config represents the staffdesk configuration.
type Config struct {
	API       APIConfig                 `toml:"api"`
	Auth      AuthConfig                `toml:"auth"`
	UI        UIConfig                  `toml:"ui"`
	Resources map[string]ResourceConfig `toml:"resources"`
	Server    ServerConfig              `toml:"server"`
	Snapshots []SnapshotSchedule        `toml:"snapshots"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DefaultHome returns the default staffdesk home directory.
// Respects STAFFDESK_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("STAFFDESK_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".staffdesk"
	}
	return filepath.Join(home, ".staffdesk")
}

// NewDefaultConfig returns a configuration with every default applied,
// rooted at DefaultHome.
func NewDefaultConfig() *Config {
	return newDefault(DefaultHome())
}

func newDefault(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		API: APIConfig{
			TimeoutSeconds: 30,
			Retries:        2,
		},
		Auth: AuthConfig{
			Storage: filepath.Join(homeDir, "auth-storage.json"),
		},
		UI: UIConfig{
			DefaultResource: "clients",
		},
		Resources: map[string]ResourceConfig{},
		Server: ServerConfig{
			APIPort:  8080,
			BindAddr: "127.0.0.1",
		},
		Snapshots:  []SnapshotSchedule{},
		configPath: filepath.Join(homeDir, "config.toml"),
	}
}

// Load reads the configuration.
//
// With an explicit path the file must exist, and the home directory
// defaults to the file's directory. Otherwise config.toml is read from
// homeDir (or DefaultHome when empty) and a missing file yields defaults.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	path = expandPath(path)

	switch {
	case homeDir != "":
		homeDir = expandPath(homeDir)
	case explicit:
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		path = abs
		homeDir = filepath.Dir(abs)
	default:
		homeDir = DefaultHome()
	}
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := newDefault(homeDir)
	cfg.configPath = path

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	// Relative paths in the file are relative to the file, not the cwd.
	base := filepath.Dir(path)
	cfg.Auth.Storage = resolvePath(base, cfg.Auth.Storage)
	cfg.Server.Fixtures = resolvePath(base, cfg.Server.Fixtures)

	return cfg, nil
}

// decodeError adds a hint for the most common TOML mistake on Windows:
// backslashes in double-quoted paths.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n\nhint: use forward slashes (C:/Users/me/staffdesk) "+
			"or single quotes ('C:\\Users\\me\\staffdesk') for Windows paths", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// ConfigFilePath returns the path the configuration was (or would be)
// loaded from.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

// LogsDir returns the directory for log files.
func (c *Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// SnapshotsDir returns the directory snapshots are written to.
func (c *Config) SnapshotsDir() string {
	return filepath.Join(c.HomeDir, "snapshots")
}

// PageSize returns the configured page size for resource, or 0 to use
// the catalog default.
func (c *Config) PageSize(resource string) int {
	return c.Resources[resource].PageSize
}

// ScheduledSnapshots returns snapshots with scheduling enabled.
func (c *Config) ScheduledSnapshots() []SnapshotSchedule {
	var scheduled []SnapshotSchedule
	for _, s := range c.Snapshots {
		if s.Enabled && s.Schedule != "" {
			scheduled = append(scheduled, s)
		}
	}
	return scheduled
}

// GetSnapshot returns a copy of the snapshot schedule for resource.
func (c *Config) GetSnapshot(resource string) (SnapshotSchedule, bool) {
	for _, s := range c.Snapshots {
		if s.Resource == resource {
			return s, true
		}
	}
	return SnapshotSchedule{}, false
}

// Validate reports configuration values staffdesk cannot use.
func (c *Config) Validate() error {
	var problems []string

	if c.UI.DefaultResource != "" {
		if _, ok := catalog.Lookup(c.UI.DefaultResource); !ok {
			problems = append(problems, fmt.Sprintf("ui.default_resource: unknown resource %q", c.UI.DefaultResource))
		}
	}

	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := catalog.Lookup(name); !ok {
			problems = append(problems, fmt.Sprintf("resources.%s: unknown resource", name))
			continue
		}
		if ps := c.Resources[name].PageSize; ps < 1 || ps > 100 {
			problems = append(problems, fmt.Sprintf("resources.%s.page_size: %d is outside 1..100", name, ps))
		}
	}

	seen := map[string]bool{}
	for i, s := range c.Snapshots {
		if res, ok := catalog.Lookup(s.Resource); !ok {
			problems = append(problems, fmt.Sprintf("snapshots[%d]: unknown resource %q", i, s.Resource))
		} else if res.Scope == catalog.ScopeParent {
			problems = append(problems, fmt.Sprintf("snapshots[%d]: %s are listed per %s record and cannot be snapshotted on their own",
				i, s.Resource, res.Parent))
		}
		if seen[s.Resource] {
			problems = append(problems, fmt.Sprintf("snapshots[%d]: duplicate resource %q", i, s.Resource))
		}
		seen[s.Resource] = true
		switch s.Format {
		case "", "json", "csv":
		default:
			problems = append(problems, fmt.Sprintf("snapshots[%d]: format %q must be json or csv", i, s.Format))
		}
	}

	if c.API.TimeoutSeconds < 0 {
		problems = append(problems, "api.timeout_seconds: must not be negative")
	}
	if c.API.Retries < 0 || c.API.Retries > 10 {
		problems = append(problems, fmt.Sprintf("api.retries: %d is outside 0..10", c.API.Retries))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// resolvePath expands ~ and makes relative paths relative to base.
func resolvePath(base, path string) string {
	path = expandPath(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// expandPath expands ~ to the user's home directory. On Windows, quotes
// left over from CMD are stripped first.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if runtime.GOOS == "windows" && len(path) >= 2 {
		first, last := path[0], path[len(path)-1]
		if (first == '\'' || first == '"') && first == last {
			path = path[1 : len(path)-1]
		}
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
