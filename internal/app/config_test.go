package app

import (
	"testing"

	"github.com/hllvc/tokenrelay/internal/credstore"
	"github.com/hllvc/tokenrelay/internal/spotify"
)

func validConfig() *Config {
	return &Config{
		LogFormat: LogFormatText,
		Server:    ServerConfig{Host: "127.0.0.1", Port: 8080},
		Spotify: SpotifyConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURI:  "https://relay.example.com/callback",
			AuthURL:      spotify.Endpoint.AuthURL,
			TokenURL:     spotify.Endpoint.TokenURL,
		},
		Device: DeviceConfig{AuthKey: "key"},
		Store:  StoreConfig{Backend: StoreBackendMemory},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Backend: StoreBackendMemory}}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}

	if cfg.LogFormat != DefaultConfigLogFormat {
		t.Errorf("log format: got %q", cfg.LogFormat)
	}
	if cfg.Server.Host != DefaultConfigServerHost || cfg.Server.Port != DefaultConfigServerPort {
		t.Errorf("server defaults: got %+v", cfg.Server)
	}
	if cfg.Spotify.AuthURL != spotify.Endpoint.AuthURL {
		t.Errorf("auth url default: got %q", cfg.Spotify.AuthURL)
	}
	if cfg.Spotify.TokenURL != spotify.Endpoint.TokenURL {
		t.Errorf("token url default: got %q", cfg.Spotify.TokenURL)
	}
}

func TestApplyDefaultsKeyringService(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Backend: StoreBackendKeyring}}
	if err := cfg.ApplyDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.Store.KeyringService != DefaultConfigStoreKeyringService {
		t.Errorf("keyring service default: got %q", cfg.Store.KeyringService)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing client id", func(c *Config) { c.Spotify.ClientID = "" }, true},
		{"missing client secret", func(c *Config) { c.Spotify.ClientSecret = "" }, true},
		{"missing redirect uri", func(c *Config) { c.Spotify.RedirectURI = "" }, true},
		{"malformed redirect uri", func(c *Config) { c.Spotify.RedirectURI = "not a url" }, true},
		{"missing auth key", func(c *Config) { c.Device.AuthKey = "" }, true},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "firestore" }, true},
		{"sqlite without data dir", func(c *Config) { c.Store.Backend = StoreBackendSQLite }, true},
		{"unknown log format", func(c *Config) { c.LogFormat = "yaml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("want validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewStore(t *testing.T) {
	memCfg := StoreConfig{Backend: StoreBackendMemory}
	store, err := memCfg.NewStore()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := store.(*credstore.MemoryStore); !ok {
		t.Errorf("got %T, want *credstore.MemoryStore", store)
	}

	sqliteCfg := StoreConfig{Backend: StoreBackendSQLite, DataDir: t.TempDir()}
	store, err = sqliteCfg.NewStore()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, ok := store.(*credstore.SQLiteStore); !ok {
		t.Errorf("got %T, want *credstore.SQLiteStore", store)
	}

	badCfg := StoreConfig{Backend: "firestore"}
	if _, err := badCfg.NewStore(); err == nil {
		t.Error("want error for unsupported backend")
	}
}
