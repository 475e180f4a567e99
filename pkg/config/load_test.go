package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: "60s"
backends:
  groq:
    daily_limit: 42
capabilities:
  chat:
    - groq
    - gemini
telemetry:
  logging:
    level: "debug"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address 0.0.0.0:9090, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout 60s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Backends["groq"].DailyLimit != 42 {
		t.Errorf("expected groq daily limit 42, got %d", cfg.Backends["groq"].DailyLimit)
	}
	// Defaults still fill what the file left out.
	if cfg.Backends["gemini"].EnvKey != "GEMINI_API_KEY" {
		t.Error("expected built-in gemini defaults alongside file config")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Telemetry.Logging.Level)
	}
	if len(cfg.Capabilities["chat"]) != 2 {
		t.Errorf("expected 2 chat back-ends, got %d", len(cfg.Capabilities["chat"]))
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfigFile(t, `
credentials:
  source: "vault"
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError in chain, got %v", err)
	}
	found := false
	for _, fe := range verr.Errors {
		if fe.Field == "credentials.source" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected credentials.source field error, got %v", verr.Errors)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:8080"
`)

	os.Setenv("RELAY_SERVER_LISTEN_ADDRESS", "0.0.0.0:7070")
	os.Setenv("RELAY_BREAKER_OPEN_TIMEOUT", "45s")
	os.Setenv("RELAY_BACKENDS_GROQ_DAILY_LIMIT", "7")
	defer func() {
		os.Unsetenv("RELAY_SERVER_LISTEN_ADDRESS")
		os.Unsetenv("RELAY_BREAKER_OPEN_TIMEOUT")
		os.Unsetenv("RELAY_BACKENDS_GROQ_DAILY_LIMIT")
	}()

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7070" {
		t.Errorf("expected env override for listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.Breaker.OpenTimeout != 45*time.Second {
		t.Errorf("expected env override for open timeout, got %v", cfg.Breaker.OpenTimeout)
	}
	if cfg.Backends["groq"].DailyLimit != 7 {
		t.Errorf("expected env override for groq daily limit, got %d", cfg.Backends["groq"].DailyLimit)
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration failed validation: %v", err)
	}
}
