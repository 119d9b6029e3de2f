// Package config provides configuration types and defaults for pagetypes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/pagetypes/internal/infrastructure/sqlite"
	"github.com/zjrosen/pagetypes/internal/log"
	"github.com/zjrosen/pagetypes/internal/permission"
	"github.com/zjrosen/pagetypes/internal/tracing"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds all configuration options for pagetypes.
type Config struct {
	// ConfigDir holds the per-user collections of the file backend.
	ConfigDir string `mapstructure:"config_dir"`
	// BuiltinDir optionally overrides embedded builtins with <type>.yaml files.
	BuiltinDir string `mapstructure:"builtin_dir"`
	// RowsFile is a YAML row fixture; empty serves the embedded demo rows.
	RowsFile string                `mapstructure:"rows_file"`
	Storage  StorageConfig         `mapstructure:"storage"`
	Server   ServerConfig          `mapstructure:"server"`
	Cache    CacheConfig           `mapstructure:"cache"`
	Users    map[string]UserConfig `mapstructure:"users"`
	Roles    map[string]RoleConfig `mapstructure:"roles"`
	Log      LogConfig             `mapstructure:"log"`
	Tracing  tracing.Config        `mapstructure:"tracing"`
	// Flags override the feature flag defaults.
	Flags map[string]bool `mapstructure:"flags"`
}

// StorageConfig selects where user collections are persisted.
type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	SQLiteDriver string `mapstructure:"sqlite_driver"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// UserHeader names the header carrying the authenticated user.
	UserHeader string `mapstructure:"user_header"`
}

// CacheConfig configures the row cache.
type CacheConfig struct {
	RowTTL time.Duration `mapstructure:"row_ttl"`
}

// UserConfig assigns roles to one user.
type UserConfig struct {
	Roles []string `mapstructure:"roles" yaml:"roles"`
}

// RoleConfig overrides the default permissions of one role.
type RoleConfig struct {
	Grant  []string `mapstructure:"grant"`
	Revoke []string `mapstructure:"revoke"`
}

// LogConfig configures the debug log.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// DefaultBaseDir returns ~/.config/pagetypes or "" if the home directory
// is unknown.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "pagetypes")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	base := DefaultBaseDir()
	tc := tracing.DefaultConfig()
	if base != "" {
		tc.FilePath = filepath.Join(base, "traces", "traces.jsonl")
	}
	return Config{
		ConfigDir: filepath.Join(base, "users"),
		Storage: StorageConfig{
			Backend:      BackendFile,
			SQLitePath:   filepath.Join(base, "pagetypes.db"),
			SQLiteDriver: sqlite.DriverNcruces,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8080",
			UserHeader: "X-Remote-User",
		},
		Cache: CacheConfig{RowTTL: 30 * time.Second},
		Users: map[string]UserConfig{
			"admin": {Roles: []string{permission.RoleAdmin}},
		},
		Log:     LogConfig{Level: "info"},
		Tracing: tc,
	}
}

// SetDefaults registers Defaults with v so unset keys fall back to them.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("config_dir", d.ConfigDir)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.sqlite_driver", d.Storage.SQLiteDriver)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.user_header", d.Server.UserHeader)
	v.SetDefault("cache.row_ttl", d.Cache.RowTTL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Load unmarshals v into a Config and validates it. Without a users
// section the default admin user applies.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if len(cfg.Users) == 0 {
		cfg.Users = Defaults().Users
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := ValidateStorage(c.Storage); err != nil {
		return err
	}
	if err := ValidateUsers(c.Users); err != nil {
		return err
	}
	if err := ValidateRoles(c.Roles); err != nil {
		return err
	}
	if c.Cache.RowTTL < 0 {
		return fmt.Errorf("cache.row_ttl must not be negative, got %s", c.Cache.RowTTL)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateStorage checks the storage section.
func ValidateStorage(s StorageConfig) error {
	switch s.Backend {
	case BackendFile, "":
	case BackendSQLite:
		if s.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required when backend is %q", BackendSQLite)
		}
		switch s.SQLiteDriver {
		case "", sqlite.DriverNcruces, sqlite.DriverModernc:
		default:
			return fmt.Errorf("storage.sqlite_driver must be %q or %q, got %q", sqlite.DriverNcruces, sqlite.DriverModernc, s.SQLiteDriver)
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendSQLite, s.Backend)
	}
	return nil
}

// ValidateUsers checks that every user has known roles.
func ValidateUsers(users map[string]UserConfig) error {
	for id, u := range users {
		if id == "" {
			return fmt.Errorf("users: empty user id")
		}
		for _, role := range u.Roles {
			if !slices.Contains(permission.BuiltinRoles, role) {
				return fmt.Errorf("users.%s.roles: unknown role %q", id, role)
			}
		}
	}
	return nil
}

// ValidateRoles checks that overrides name builtin roles and that no
// permission is both granted and revoked.
func ValidateRoles(roles map[string]RoleConfig) error {
	for role, rc := range roles {
		if !slices.Contains(permission.BuiltinRoles, role) {
			return fmt.Errorf("roles: unknown role %q", role)
		}
		for _, id := range rc.Grant {
			if slices.Contains(rc.Revoke, id) {
				return fmt.Errorf("roles.%s: %q is both granted and revoked", role, id)
			}
		}
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}
	switch tc.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
	}
	if tc.Enabled {
		if tc.Exporter == "file" && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == "otlp" && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// ApplyPermissions assigns the configured user roles and role overrides.
// Overrides are applied after element types declared their permissions,
// so they win over the defaults.
func (c Config) ApplyPermissions(perms *permission.Registry) {
	for id, u := range c.Users {
		perms.SetUserRoles(id, u.Roles...)
	}
	for role, rc := range c.Roles {
		for _, id := range rc.Grant {
			perms.Grant(role, id)
		}
		for _, id := range rc.Revoke {
			perms.Revoke(role, id)
		}
	}
	log.Debug(log.CatConfig, "Applied permissions", "users", len(c.Users), "roles", len(c.Roles))
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# pagetypes configuration

# Directory holding per-user page collections (file backend)
# config_dir: ~/.config/pagetypes/users

# Optional directory of <type>.yaml files overriding the builtin pages.
# Changes are picked up while the server runs.
# builtin_dir: /etc/pagetypes/builtins

# Optional YAML file with monitoring rows per datasource (default: demo rows)
# rows_file: /etc/pagetypes/rows.yaml

storage:
  backend: file            # file (default) or sqlite
  # sqlite_path: ~/.config/pagetypes/pagetypes.db
  # sqlite_driver: sqlite3 # sqlite3 (ncruces, default) or sqlite (modernc)

server:
  addr: 127.0.0.1:8080
  user_header: X-Remote-User  # header set by the authenticating proxy

cache:
  row_ttl: 30s             # 0 disables the row cache

# Role assignment per user: admin, user or guest
users:
  admin:
    roles: [admin]

# Per-role overrides of permission defaults
# roles:
#   guest:
#     grant: [general.edit_view]
#   user:
#     revoke: [general.publish_dashboard]

# Optional surfaces of the web server
# flags:
#   web-api: true          # automation API below /api
#   log-stream: false      # log as server-sent events at /events/log
#   metrics: true          # Prometheus endpoint at /metrics

# log:
#   path: ~/.config/pagetypes/debug.log
#   level: info            # debug, info, warn, error

# Distributed tracing
# tracing:
#   enabled: false
#   exporter: file         # none, file, stdout, otlp
#   file_path: ~/.config/pagetypes/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
