// Package config loads the session layer configuration from an optional YAML
// file, a .env file, and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the session layer service.
// Precedence: built-in defaults < YAML file < environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Host      HostConfig      `yaml:"host"`
	Connector ConnectorConfig `yaml:"connector"`
	Wallet    WalletConfig    `yaml:"wallet"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// LoggingConfig configures the shared logger.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output" env:"LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"LOG_FILE_PREFIX"`
}

// HostConfig configures access to the host platform bridge.
type HostConfig struct {
	// BridgeURL is the base URL of the host platform bridge. Empty means no
	// host bridge is reachable at all, which resolves standalone.
	BridgeURL string `yaml:"bridge_url" env:"HOST_BRIDGE_URL"`
	// SessionToken authenticates backend profile fetches against the host.
	SessionToken string        `yaml:"session_token" env:"HOST_SESSION_TOKEN"`
	CallTimeout  time.Duration `yaml:"call_timeout" env:"HOST_CALL_TIMEOUT"`
	// ProfilePath is the application-internal endpoint for the supplementary
	// profile fetch.
	ProfilePath string `yaml:"profile_path" env:"HOST_PROFILE_PATH"`
}

// ConnectorConfig configures the generic wallet connector registry.
type ConnectorConfig struct {
	// HubURL is the websocket endpoint of the external connector hub. Empty
	// disables the ambient connector event stream.
	HubURL string `yaml:"hub_url" env:"CONNECTOR_HUB_URL"`
	APIKey string `yaml:"api_key" env:"CONNECTOR_API_KEY"`
	// InjectedID is the capability identifier under which the host-injected
	// provider is registered in the connector registry.
	InjectedID string `yaml:"injected_id" env:"CONNECTOR_INJECTED_ID"`
}

// WalletConfig configures wallet connection behaviour.
type WalletConfig struct {
	// ConnectRatePerMin caps manual connect retries.
	ConnectRatePerMin int `yaml:"connect_rate_per_min" env:"WALLET_CONNECT_RATE_PER_MIN"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8090,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Host: HostConfig{
			CallTimeout: 5 * time.Second,
			ProfilePath: "/api/profile/me",
		},
		Connector: ConnectorConfig{
			InjectedID: "injected",
		},
		Wallet: WalletConfig{
			ConnectRatePerMin: 12,
		},
	}
}

// Load reads config.yaml (or $CONFIG_PATH), loads a local .env file, and
// applies environment variable overrides.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration with the YAML file at the given path as the
// middle layer. A missing file is not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env is optional; ignore absence.
	_ = godotenv.Load()

	// Decode only variables that are actually set; a fully empty environment
	// is fine.
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Host.CallTimeout <= 0 {
		return fmt.Errorf("host call timeout must be positive: %s", c.Host.CallTimeout)
	}
	if c.Wallet.ConnectRatePerMin <= 0 {
		return fmt.Errorf("wallet connect rate must be positive: %d", c.Wallet.ConnectRatePerMin)
	}
	return nil
}
