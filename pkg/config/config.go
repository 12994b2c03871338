// Package config loads the editor service configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

// Environment variables that override secrets from the file
const (
	EnvS3AccessKey = "MAPEDITOR_S3_ACCESS_KEY"
	EnvS3SecretKey = "MAPEDITOR_S3_SECRET_KEY"
	EnvDatabaseURL = "MAPEDITOR_DATABASE_URL"
)

// Config is the top-level service configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	GraphQLMaxDepth int           `yaml:"graphql_max_depth"`
	TLS             TLSConfig     `yaml:"tls"`
}

// TLSConfig switches the listener to HTTPS. With SelfSigned and no key pair
// a certificate for Hosts is generated at startup. ClientCAFile enables
// verification of client certificates when they are presented.
type TLSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	CertFile     string   `yaml:"cert_file"`
	KeyFile      string   `yaml:"key_file"`
	ClientCAFile string   `yaml:"client_ca_file"`
	SelfSigned   bool     `yaml:"self_signed"`
	Hosts        []string `yaml:"hosts"`
}

// LogConfig configures the default logger
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	File     FileConfig     `yaml:"file"`
	S3       S3Config       `yaml:"s3"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// FileConfig is the local directory backend
type FileConfig struct {
	Dir string `yaml:"dir"`
}

// S3Config is the object storage backend. Endpoint is optional and switches
// the client to path-style addressing for S3-compatible servers.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// PostgresConfig is the SQL backend
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// SessionConfig sizes per-session buffers. MaxOpen only degrades the
// health report; opening is never refused.
type SessionConfig struct {
	AuditBuffer int `yaml:"audit_buffer"`
	EventBuffer int `yaml:"event_buffer"`
	MaxOpen     int `yaml:"max_open"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads, defaults and validates a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and environment overrides, then validates
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field
func (c *Config) ApplyDefaults() {
	c.Server.Addr = validation.DefaultOr(c.Server.Addr, ":8080")
	c.Server.ShutdownTimeout = validation.DefaultPositive(c.Server.ShutdownTimeout, 10*time.Second)
	c.Server.ReadTimeout = validation.DefaultPositive(c.Server.ReadTimeout, 15*time.Second)
	c.Server.IdleTimeout = validation.DefaultPositive(c.Server.IdleTimeout, 60*time.Second)
	c.Server.MaxBodyBytes = validation.DefaultOr(c.Server.MaxBodyBytes, 8<<20)
	c.Server.GraphQLMaxDepth = validation.DefaultPositive(c.Server.GraphQLMaxDepth, 3)
	c.Log.Level = validation.DefaultOr(c.Log.Level, "info")
	c.Store.Backend = validation.DefaultOr(c.Store.Backend, BackendFile)
	c.Store.File.Dir = validation.DefaultOr(c.Store.File.Dir, "./data/esdl")
	c.Store.S3.Region = validation.DefaultOr(c.Store.S3.Region, "us-east-1")
	c.Session.AuditBuffer = validation.DefaultPositive(c.Session.AuditBuffer, 1000)
	c.Session.EventBuffer = validation.DefaultPositive(c.Session.EventBuffer, 100)
}

// ApplyEnv overrides credentials from the environment when set
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvS3AccessKey); v != "" {
		c.Store.S3.AccessKey = v
	}
	if v := getenv(EnvS3SecretKey); v != "" {
		c.Store.S3.SecretKey = v
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.Store.Postgres.URL = v
	}
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	return validation.NewConfigValidator("Config").
		Required("Server.Addr", c.Server.Addr).
		MinDuration("Server.ShutdownTimeout", c.Server.ShutdownTimeout, 100*time.Millisecond).
		MinDuration("Server.ReadTimeout", c.Server.ReadTimeout, time.Second).
		Positive("Server.GraphQLMaxDepth", c.Server.GraphQLMaxDepth).
		When(c.Server.TLS.Enabled && !c.Server.TLS.SelfSigned, func(cv *validation.ConfigValidator) {
			cv.Required("Server.TLS.CertFile", c.Server.TLS.CertFile).
				Required("Server.TLS.KeyFile", c.Server.TLS.KeyFile)
		}).
		OneOf("Log.Level", c.Log.Level, []string{"debug", "info", "warn", "error"}).
		OneOf("Store.Backend", c.Store.Backend, []string{BackendFile, BackendS3, BackendPostgres}).
		When(c.Store.Backend == BackendFile, func(cv *validation.ConfigValidator) {
			cv.Required("Store.File.Dir", c.Store.File.Dir)
		}).
		When(c.Store.Backend == BackendS3, func(cv *validation.ConfigValidator) {
			cv.Required("Store.S3.Bucket", c.Store.S3.Bucket).
				Required("Store.S3.Region", c.Store.S3.Region).
				When(c.Store.S3.Endpoint != "", func(cv *validation.ConfigValidator) {
					cv.URL("Store.S3.Endpoint", c.Store.S3.Endpoint, "http", "https")
				}).
				When(c.Store.S3.AccessKey != "" || c.Store.S3.SecretKey != "", func(cv *validation.ConfigValidator) {
					cv.Required("Store.S3.AccessKey", c.Store.S3.AccessKey).
						Required("Store.S3.SecretKey", c.Store.S3.SecretKey)
				})
		}).
		When(c.Store.Backend == BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("Store.Postgres.URL", c.Store.Postgres.URL).
				When(c.Store.Postgres.URL != "", func(cv *validation.ConfigValidator) {
					cv.URL("Store.Postgres.URL", c.Store.Postgres.URL, "postgres", "postgresql")
				})
		}).
		Positive("Session.AuditBuffer", c.Session.AuditBuffer).
		Positive("Session.EventBuffer", c.Session.EventBuffer).
		NonNegative("Session.MaxOpen", c.Session.MaxOpen).
		Validate()
}
