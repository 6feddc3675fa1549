package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hllvc/tokenrelay/internal/credstore"
	"github.com/hllvc/tokenrelay/internal/spotify"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// StoreBackend represents the different storage backends supported for
// credential records.
type StoreBackend string

const (
	StoreBackendMemory  StoreBackend = "memory"
	StoreBackendSQLite  StoreBackend = "sqlite"
	StoreBackendKeyring StoreBackend = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat           = LogFormatText
	DefaultConfigServerHost          = "127.0.0.1"
	DefaultConfigServerPort          = 8080
	DefaultConfigShutdownTimeout     = 5 * time.Second
	DefaultConfigStoreBackend        = StoreBackendSQLite
	DefaultConfigStoreKeyringService = "tokenrelay-credentials"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// SpotifyConfig holds the OAuth application credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`

	// RedirectURI must exactly match the value registered with Spotify.
	RedirectURI string `json:"redirect_uri" validate:"required,url"`

	// AuthURL and TokenURL default to the Spotify production endpoints.
	// Overridable for testing against a local authorization server.
	AuthURL  string `json:"auth_url" validate:"omitempty,url"`
	TokenURL string `json:"token_url" validate:"omitempty,url"`
}

// DeviceConfig holds the shared secret gating device credential retrieval.
type DeviceConfig struct {
	AuthKey string `json:"auth_key" validate:"required"`
}

// StoreConfig describes how to construct the credential store backend.
type StoreConfig struct {
	Backend StoreBackend `json:"backend" validate:"required,oneof=memory sqlite keyring"`

	// Backend-specific settings (mutually exclusive based on Backend type)
	DataDir        string `json:"data_dir,omitempty"`        // For sqlite: directory holding the database file
	KeyringService string `json:"keyring_service,omitempty"` // For keyring: service identifier
}

// NewStore creates a credential store from the storage configuration.
func (s *StoreConfig) NewStore() (credstore.Store, error) {
	switch s.Backend {
	case StoreBackendMemory:
		return credstore.NewMemoryStore(), nil
	case StoreBackendSQLite:
		return credstore.NewSQLiteStore(s.DataDir)
	case StoreBackendKeyring:
		return credstore.NewKeyringStore(s.KeyringService)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", s.Backend)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Spotify   SpotifyConfig  `json:"spotify"`
	Device    DeviceConfig   `json:"device"`
	Store     StoreConfig    `json:"store"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Spotify.AuthURL == "" {
		c.Spotify.AuthURL = spotify.Endpoint.AuthURL
	}
	if c.Spotify.TokenURL == "" {
		c.Spotify.TokenURL = spotify.Endpoint.TokenURL
	}
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultConfigStoreBackend
	}

	// Dynamic defaults based on storage backend
	switch c.Store.Backend {
	case StoreBackendSQLite:
		if c.Store.DataDir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("store.data_dir required (auto-detect failed: %w)", err)
			}
			c.Store.DataDir = filepath.Join(configDir, "tokenrelay")
		}
	case StoreBackendKeyring:
		if c.Store.KeyringService == "" {
			c.Store.KeyringService = DefaultConfigStoreKeyringService
		}
	case StoreBackendMemory:
		// nothing to configure; credentials do not survive restarts
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Store.Backend {
	case StoreBackendSQLite:
		if c.Store.DataDir == "" {
			return errors.New("data_dir required for sqlite storage")
		}
	case StoreBackendKeyring:
		if c.Store.KeyringService == "" {
			return errors.New("keyring_service required for keyring storage")
		}
	}

	return nil
}
