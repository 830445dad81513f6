package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Workspace backends.
const (
	BackendFS   = "fs"
	BackendBolt = "bolt"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	Workspace   WorkspaceConfig   `yaml:"workspace"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Generate    GenerateConfig    `yaml:"generate"`
	DataSources DataSourcesConfig `yaml:"datasources"`
	Cache       CacheConfig       `yaml:"cache"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Generate.Validate(); err != nil {
		return err
	}
	return c.Cache.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	// EventsThrottle is the minimum interval between network.updated
	// events of one project.
	EventsThrottle time.Duration `yaml:"events_throttle"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.EventsThrottle, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
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

// WorkspaceConfig selects where projects are stored.
//
// With the "fs" backend Path is a directory holding one sub-directory per
// project. With "bolt" it is the database file.
type WorkspaceConfig struct {
	Backend      string   `yaml:"backend"`
	Path         string   `yaml:"path"`
	Patterns     []string `yaml:"patterns"`
	SeedExamples bool     `yaml:"seed_examples"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFS
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFS, BackendBolt)),
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Patterns, validation.Each(validation.By(validPattern))),
	)
}

func validPattern(v any) error {
	p, _ := v.(string)
	if p == "" || !doublestar.ValidatePattern(p) {
		return errors.New("must be a valid glob pattern")
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GenerateConfig configures the chat completions service used to draft
// documents. An empty APIKey disables it; requests then get the canned
// example documents.
type GenerateConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// Validate validates the generation configuration.
func (c *GenerateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
	)
}

// Enabled reports whether a remote service is configured.
func (c *GenerateConfig) Enabled() bool {
	return c.APIKey != ""
}

// DataSourcesConfig points at an optional data source catalog file that
// replaces the built-in one.
type DataSourcesConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig sizes the parsed-document cache.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Size, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			EventsThrottle: 2 * time.Second,
		},
		Workspace: WorkspaceConfig{
			Backend:      BackendFS,
			Path:         "./workspace",
			SeedExamples: true,
		},
		SQLite: SQLiteConfig{
			Path: "./bkn.db",
		},
		Generate: GenerateConfig{
			Temperature: 0.7,
			Timeout:     2 * time.Minute,
			MaxRetries:  3,
		},
		Cache: CacheConfig{
			Size: 512,
		},
	}
}
