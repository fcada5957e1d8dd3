package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quarry/internal/target"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Index backends.
const (
	IndexBackendGit = "git"
	IndexBackendDir = "dir"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app" toml:"app"`
	Index    IndexConfig       `yaml:"index" toml:"index"`
	Storage  StorageConfig     `yaml:"storage" toml:"storage"`
	SQLite   SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth" toml:"auth"`
	Registry RegistryConfig    `yaml:"registry" toml:"registry"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Index.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Registry.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// IndexConfig locates the package index. Backend "git" reads the HEAD
// commit of a repository; "dir" reads a plain checkout.
type IndexConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
	Watch   bool   `yaml:"watch" toml:"watch"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(IndexBackendGit, IndexBackendDir)),
		validation.Field(&c.Path, validation.Required),
	)
}

// StorageConfig holds the path of the blob store.
type StorageConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): reads are public.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RegistryConfig holds the target kinds this registry serves. An empty
// list serves every kind.
type RegistryConfig struct {
	Targets []string `yaml:"targets" toml:"targets"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	_, err := c.KindSet()
	return err
}

// KindSet returns the enabled kinds.
func (c *RegistryConfig) KindSet() (target.KindSet, error) {
	set, err := target.NewKindSet(c.Targets...)
	if err != nil {
		return target.KindSet{}, fmt.Errorf("registry: targets: %w", err)
	}
	return set, nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Index: IndexConfig{
			Backend: IndexBackendGit,
			Path:    "./index",
			Watch:   true,
		},
		Storage: StorageConfig{
			Path: "./data",
		},
		SQLite: SQLiteConfig{
			Path: "./quarry.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
