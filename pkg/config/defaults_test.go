package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 0 {
		t.Errorf("expected write timeout to stay zero for streaming, got %v", cfg.Server.WriteTimeout)
	}
	if len(cfg.Backends) != 9 {
		t.Errorf("expected 9 built-in back-ends, got %d", len(cfg.Backends))
	}
	if cfg.Credentials.Source != "env" {
		t.Errorf("expected credentials source env, got %q", cfg.Credentials.Source)
	}
	if cfg.Pool.FailureThreshold != 5 {
		t.Errorf("expected pool failure threshold 5, got %d", cfg.Pool.FailureThreshold)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.SuccessThreshold != 2 {
		t.Errorf("unexpected breaker thresholds: %d/%d", cfg.Breaker.FailureThreshold, cfg.Breaker.SuccessThreshold)
	}
	if cfg.Breaker.OpenTimeout != 30*time.Second {
		t.Errorf("expected open timeout 30s, got %v", cfg.Breaker.OpenTimeout)
	}
	if cfg.Router.AttemptTimeout != 60*time.Second {
		t.Errorf("expected attempt timeout 60s, got %v", cfg.Router.AttemptTimeout)
	}
	if cfg.Journal.Backend != "sqlite" {
		t.Errorf("expected journal backend sqlite, got %q", cfg.Journal.Backend)
	}
	if !cfg.Journal.SQLite.WALMode {
		t.Error("expected WAL mode on by default")
	}
	if cfg.Journal.Retention.Days != 30 {
		t.Errorf("expected retention days 30, got %d", cfg.Journal.Retention.Days)
	}
	if cfg.ResetSchedule != "0 0 * * *" {
		t.Errorf("expected midnight reset schedule, got %q", cfg.ResetSchedule)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %s/%s", cfg.Telemetry.Logging.Level, cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Namespace != "baatcheet" || cfg.Telemetry.Metrics.Subsystem != "relay" {
		t.Errorf("unexpected metrics namespace: %s/%s", cfg.Telemetry.Metrics.Namespace, cfg.Telemetry.Metrics.Subsystem)
	}
	if cfg.Telemetry.Health.MinHealthyBackends != 1 {
		t.Errorf("expected min healthy backends 1, got %d", cfg.Telemetry.Health.MinHealthyBackends)
	}
}

func TestApplyDefaults_BuiltinCatalog(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	tests := []struct {
		backend   string
		task      string
		authStyle string
		authName  string
		envKey    string
	}{
		{"groq", "chat", "bearer", "", "GROQ_API_KEY"},
		{"deepseek", "chat", "bearer", "", "DEEPSEEK_API_KEY"},
		{"openrouter", "vision", "bearer", "", "OPENROUTER_API_KEY"},
		{"huggingface", "embedding", "bearer", "", "HUGGINGFACE_API_KEY"},
		{"gemini", "ocr", "query", "key", "GEMINI_API_KEY"},
		{"ocrspace", "ocr", "header", "apikey", "OCR_SPACE_API_KEY"},
		{"brave", "search", "header", "X-Subscription-Token", "BRAVE_SEARCH_KEY"},
		{"serpapi", "search", "query", "api_key", "SERPAPI_KEY"},
		{"elevenlabs", "tts", "header", "xi-api-key", "ELEVENLABS_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			b, ok := cfg.Backends[tt.backend]
			if !ok {
				t.Fatalf("back-end %s missing from defaults", tt.backend)
			}
			if b.Endpoints[tt.task] == "" {
				t.Errorf("expected %s endpoint for task %s", tt.backend, tt.task)
			}
			if b.AuthStyle != tt.authStyle || b.AuthName != tt.authName {
				t.Errorf("expected auth %s/%s, got %s/%s", tt.authStyle, tt.authName, b.AuthStyle, b.AuthName)
			}
			if b.EnvKey != tt.envKey {
				t.Errorf("expected env key %s, got %s", tt.envKey, b.EnvKey)
			}
			if b.DailyLimit != DefaultDailyLimit {
				t.Errorf("expected daily limit %d, got %d", DefaultDailyLimit, b.DailyLimit)
			}
			if b.Timeout != DefaultBackendTimeout {
				t.Errorf("expected timeout %v, got %v", DefaultBackendTimeout, b.Timeout)
			}
		})
	}
}

func TestApplyDefaults_OverrideMergesWithBuiltin(t *testing.T) {
	cfg := Config{
		Backends: map[string]BackendConfig{
			"groq": {
				DailyLimit: 50,
				Endpoints:  map[string]string{"chat": "https://groq.example.com/v1/chat"},
			},
		},
	}
	ApplyDefaults(&cfg)

	groq := cfg.Backends["groq"]
	if groq.DailyLimit != 50 {
		t.Errorf("expected configured daily limit 50, got %d", groq.DailyLimit)
	}
	if groq.Endpoints["chat"] != "https://groq.example.com/v1/chat" {
		t.Errorf("expected overridden chat endpoint, got %q", groq.Endpoints["chat"])
	}
	if groq.Endpoints["vision"] == "" {
		t.Error("expected built-in vision endpoint to survive the merge")
	}
	if groq.AuthStyle != "bearer" || groq.EnvKey != "GROQ_API_KEY" {
		t.Errorf("expected built-in auth/env key to survive, got %s/%s", groq.AuthStyle, groq.EnvKey)
	}
}

func TestApplyDefaults_CustomBackendKept(t *testing.T) {
	cfg := Config{
		Backends: map[string]BackendConfig{
			"localllm": {
				Endpoints: map[string]string{"chat": "http://localhost:11434/v1/chat/completions"},
				AuthStyle: "bearer",
				EnvKey:    "LOCALLLM_API_KEY",
			},
		},
	}
	ApplyDefaults(&cfg)

	local, ok := cfg.Backends["localllm"]
	if !ok {
		t.Fatal("expected custom back-end to be kept")
	}
	if local.DailyLimit != DefaultDailyLimit {
		t.Errorf("expected generic daily limit default, got %d", local.DailyLimit)
	}
	if len(cfg.Backends) != 10 {
		t.Errorf("expected 9 built-ins plus 1 custom, got %d", len(cfg.Backends))
	}
}

func TestApplyDefaults_BurstFallsBackToRate(t *testing.T) {
	cfg := Config{
		Backends: map[string]BackendConfig{
			"groq": {RequestsPerMinute: 120},
		},
	}
	ApplyDefaults(&cfg)

	if got := cfg.Backends["groq"].Burst; got != 120 {
		t.Errorf("expected burst to fall back to requests per minute, got %d", got)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	listen := cfg.Server.ListenAddress
	backends := len(cfg.Backends)

	ApplyDefaults(&cfg)

	if cfg.Server.ListenAddress != listen {
		t.Error("listen address changed on second application")
	}
	if len(cfg.Backends) != backends {
		t.Errorf("back-end count changed on second application: %d != %d", len(cfg.Backends), backends)
	}
}
