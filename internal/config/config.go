package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds canvasboard configuration.
type Config struct {
	API         APIConfig         `toml:"api"`
	Persistence PersistenceConfig `toml:"persistence"`
	Storage     StorageConfig     `toml:"storage"`
	Server      ServerConfig      `toml:"server"`
	Viewport    ViewportConfig    `toml:"viewport"`
}

// APIConfig points the desktop client at the REST backend.
type APIConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// PersistenceConfig controls the debounce windows of widget writes.
type PersistenceConfig struct {
	DebounceText    Duration `toml:"debounce_text"`
	DebounceTimer   Duration `toml:"debounce_timer"`
	DebounceDrawing Duration `toml:"debounce_drawing"`
	SweepInterval   Duration `toml:"sweep_interval"`
}

// StorageConfig selects the repository backing the REST server.
type StorageConfig struct {
	Driver        string `toml:"driver"` // "sqlite", "postgres", "mysql", "mongodb"
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	Database      string `toml:"database"`
	SSLMode       string `toml:"ssl_mode"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	DataDir       string `toml:"data_dir"`

	// PasswordSecret names a secret holding the password, read from the
	// environment or the keychain when Password is empty.
	PasswordSecret string `toml:"password_secret"`
}

type ServerConfig struct {
	Addr                string `toml:"addr"`
	MaintenanceSchedule string `toml:"maintenance_schedule"`
}

// ViewportConfig chooses where the viewport is remembered. With a state
// dir it is kept in canvas-viewport.json there; otherwise in the settings
// table of the local database.
type ViewportConfig struct {
	StateDir string `toml:"state_dir"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: Duration(30 * time.Second),
		},
		Persistence: PersistenceConfig{
			DebounceText:    Duration(500 * time.Millisecond),
			DebounceTimer:   Duration(2 * time.Second),
			DebounceDrawing: Duration(time.Second),
			SweepInterval:   Duration(50 * time.Millisecond),
		},
		Storage: StorageConfig{
			Driver:  "sqlite",
			SSLMode: "disable",
			DataDir: filepath.Join(ConfigDir(), "data"),
		},
		Server: ServerConfig{
			Addr:                ":5000",
			MaintenanceSchedule: "@every 1h",
		},
	}
}

// ConfigDir returns the canvasboard config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "canvasboard")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Save(path, Default())
}

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
