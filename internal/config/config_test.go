package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Host.CallTimeout != 5*time.Second {
		t.Errorf("call timeout = %s, want 5s", cfg.Host.CallTimeout)
	}
	if cfg.Connector.InjectedID != "injected" {
		t.Errorf("injected id = %q", cfg.Connector.InjectedID)
	}
}

func TestLoadFromPath_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("server:\n  port: 9999\nhost:\n  bridge_url: https://bridge.example\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Host.BridgeURL != "https://bridge.example" {
		t.Errorf("bridge url = %q", cfg.Host.BridgeURL)
	}
	// Untouched fields keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFromPath_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("HOST_SESSION_TOKEN", "tok-123")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Host.SessionToken != "tok-123" {
		t.Errorf("session token = %q", cfg.Host.SessionToken)
	}
}

func TestLoadFromPath_InvalidPortRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("negative port should be rejected")
	}
}

func TestLoadFromPath_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("malformed yaml should be rejected")
	}
}
