package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Corpus CorpusConfig      `yaml:"corpus"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
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

var kindPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// CorpusConfig describes where proposals live and how they are headed.
//
// Dir is relative to the project root unless absolute. Kind is the word used
// in headings ("# RFC 0001: Title"). DefaultAuthor, when set, is used for new
// proposals without an explicit author before falling back to git.
type CorpusConfig struct {
	Dir           string `yaml:"dir"`
	Kind          string `yaml:"kind"`
	DefaultAuthor string `yaml:"default_author"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Kind, validation.Required, validation.Match(kindPattern)),
	)
}

// SQLiteConfig holds SQLite catalog configuration. A relative Path is
// resolved against the project root.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Resolve returns Path made absolute against root.
func (c *SQLiteConfig) Resolve(root string) string {
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(root, c.Path)
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
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Corpus: CorpusConfig{
			Dir:  "rfc",
			Kind: "RFC",
		},
		SQLite: SQLiteConfig{
			Path: ".agx/index.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
