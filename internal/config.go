package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// BackendURLEnv is the environment fallback for the backend URL.
const BackendURLEnv = "INKPRESS_BACKEND_URL"

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	Backend  BackendConfig     `yaml:"backend"`
	Diagrams DiagramConfig     `yaml:"diagrams"`
	Typst    TypstConfig       `yaml:"typst"`
	Serve    ServeConfig       `yaml:"serve"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Diagrams.Validate(); err != nil {
		return err
	}
	if err := c.Typst.Validate(); err != nil {
		return err
	}
	return c.Serve.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// ContentConfig holds the path to the markdown content directory.
type ContentConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// BackendConfig holds the journal backend endpoint and credential.
type BackendConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// ResolveURL returns the configured backend URL, falling back to the
// INKPRESS_BACKEND_URL environment variable.
func (c *BackendConfig) ResolveURL() string {
	if c.URL != "" {
		return c.URL
	}
	return os.Getenv(BackendURLEnv)
}

// DiagramConfig holds mermaid rendering configuration.
type DiagramConfig struct {
	Bin            string `yaml:"bin"`
	Dir            string `yaml:"dir"`
	Workers        int    `yaml:"workers"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-render timeout.
func (c *DiagramConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the diagram configuration.
func (c *DiagramConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bin, validation.Required),
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1)),
	)
}

// TypstConfig holds PDF compilation configuration.
type TypstConfig struct {
	Bin     string `yaml:"bin"`
	WorkDir string `yaml:"work_dir"`
	Workers int    `yaml:"workers"`
}

// Validate validates the typst configuration.
func (c *TypstConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bin, validation.Required),
		validation.Field(&c.WorkDir, validation.Required),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// ServeConfig holds the development backend server configuration.
type ServeConfig struct {
	Port      int        `yaml:"port"`
	SQLite    string     `yaml:"sqlite"`
	BlobDir   string     `yaml:"blob_dir"`
	PublicURL string     `yaml:"public_url"`
	Auth      AuthConfig `yaml:"auth"`
}

// Address returns the HTTP server address.
func (c *ServeConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ResolvedPublicURL returns the public base URL, defaulting to localhost on
// the configured port.
func (c *ServeConfig) ResolvedPublicURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// Validate validates the serve configuration.
func (c *ServeConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SQLite, validation.Required),
		validation.Field(&c.BlobDir, validation.Required),
	); err != nil {
		return err
	}
	return c.Auth.Validate()
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
	// Normalise empty mode to "disabled" for backward compatibility.
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
		},
		Content: ContentConfig{
			Dir: "./content",
		},
		Diagrams: DiagramConfig{
			Bin:            "mmdc",
			Dir:            ".inkpress/build/diagrams",
			Workers:        4,
			TimeoutSeconds: 30,
		},
		Typst: TypstConfig{
			Bin:     "typst",
			WorkDir: ".inkpress/build",
			Workers: 6,
		},
		Serve: ServeConfig{
			Port:    8080,
			SQLite:  "./inkpress.db",
			BlobDir: ".inkpress/blobs",
			Auth: AuthConfig{
				Mode: AuthModeDisabled,
			},
		},
	}
}
