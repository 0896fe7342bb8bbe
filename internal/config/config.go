package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override the file.
const (
	EnvClientID       = "HUDDLE_OAUTH_CLIENT_ID"
	EnvRedirectURL    = "HUDDLE_OAUTH_REDIRECT_URL"
	EnvScopes         = "HUDDLE_OAUTH_SCOPES"
	EnvDeliveryDelay  = "HUDDLE_DELIVERY_DELAY"
	EnvDefaultProfile = "HUDDLE_DEFAULT_PROFILE"
)

// Config represents the global ~/.huddle/config.toml.
type Config struct {
	DefaultProfile string   `toml:"default_profile"`
	Delivery       Delivery `toml:"delivery"`
	Identity       Identity `toml:"identity"`
	UI             UI       `toml:"ui"`
}

// Delivery tunes the simulated delivery lifecycle.
type Delivery struct {
	Delay Duration `toml:"delay"`
}

// Identity configures the sign-in stand-in.
type Identity struct {
	ClientID    string   `toml:"client_id"`
	RedirectURL string   `toml:"redirect_url"`
	Scopes      []string `toml:"scopes"`
	SignInDelay Duration `toml:"sign_in_delay"`
	Fail        bool     `toml:"fail"`
}

// UI holds terminal UI settings.
type UI struct {
	// CompactWidth is the terminal width below which the single-pane layout
	// is used.
	CompactWidth int `toml:"compact_width"`
}

// Duration is a time.Duration that reads and writes as "1s", "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Delivery: Delivery{Delay: Duration{time.Second}},
		Identity: Identity{SignInDelay: Duration{500 * time.Millisecond}},
		UI:       UI{CompactWidth: 100},
	}
}

// Load reads config from the given path. Returns nil and error if the file
// is missing or malformed. Fields the file omits keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

// LoadOrDefault is Load falling back to Default. The returned error is only
// informational: nil when the file was read or simply absent.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return Default(), fmt.Errorf("config %s: %w", path, err)
}

// ApplyEnv loads envFile into the process environment when it exists (without
// overriding variables already set) and applies the HUDDLE_* overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvClientID); v != "" {
		c.Identity.ClientID = v
	}
	if v := os.Getenv(EnvRedirectURL); v != "" {
		c.Identity.RedirectURL = v
	}
	if v := os.Getenv(EnvScopes); v != "" {
		c.Identity.Scopes = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v := os.Getenv(EnvDeliveryDelay); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDeliveryDelay, err)
		}
		c.Delivery.Delay = Duration{d}
	}
	if v := os.Getenv(EnvDefaultProfile); v != "" {
		c.DefaultProfile = v
	}
	c.normalize()
	return nil
}

func (c *Config) normalize() {
	def := Default()
	if c.Delivery.Delay.Duration <= 0 {
		c.Delivery.Delay = def.Delivery.Delay
	}
	if c.Identity.SignInDelay.Duration < 0 {
		c.Identity.SignInDelay = def.Identity.SignInDelay
	}
	if c.UI.CompactWidth <= 0 {
		c.UI.CompactWidth = def.UI.CompactWidth
	}
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
