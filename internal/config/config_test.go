package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolateHome points HOME at a temp dir so Load never sees a developer's
// real config file, and pins the env vars Load binds.
func isolateHome(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("GEMINI_API_KEY", "test-api-key")
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != ProviderGoogleAI {
		t.Errorf("expected default Provider %q, got %q", ProviderGoogleAI, cfg.Provider)
	}
	if cfg.ModelName != "gemini-2.5-flash" {
		t.Errorf("expected default ModelName 'gemini-2.5-flash', got %q", cfg.ModelName)
	}
	if cfg.Temperature != 0.0 {
		t.Errorf("expected default Temperature 0.0, got %f", cfg.Temperature)
	}
	if cfg.MaxHistoryMessages != DefaultMaxHistoryMessages {
		t.Errorf("expected default MaxHistoryMessages %d, got %d", DefaultMaxHistoryMessages, cfg.MaxHistoryMessages)
	}

	if cfg.TicketAPI.BaseURL != "http://127.0.0.1:8200/api/tickets" {
		t.Errorf("unexpected default base URL %q", cfg.TicketAPI.BaseURL)
	}
	if cfg.TicketAPI.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %s", cfg.TicketAPI.Timeout)
	}
	if cfg.TicketAPI.MaxAttempts != 6 {
		t.Errorf("expected default MaxAttempts 6, got %d", cfg.TicketAPI.MaxAttempts)
	}
	if cfg.TicketAPI.BackoffInitial != 500*time.Millisecond {
		t.Errorf("expected default BackoffInitial 500ms, got %s", cfg.TicketAPI.BackoffInitial)
	}
	if cfg.TicketAPI.BackoffMax != 15*time.Second {
		t.Errorf("expected default BackoffMax 15s, got %s", cfg.TicketAPI.BackoffMax)
	}
	if cfg.TicketAPI.BackoffMultiplier != 2.0 {
		t.Errorf("expected default BackoffMultiplier 2.0, got %g", cfg.TicketAPI.BackoffMultiplier)
	}
	if cfg.TicketAPI.MaxPages != 50 {
		t.Errorf("expected default MaxPages 50, got %d", cfg.TicketAPI.MaxPages)
	}

	if cfg.Server.Addr != "127.0.0.1:8100" {
		t.Errorf("unexpected default server addr %q", cfg.Server.Addr)
	}
	if cfg.Simulator.FailureRate != 0.25 {
		t.Errorf("expected default failure rate 0.25, got %g", cfg.Simulator.FailureRate)
	}
	if cfg.TranscriptPath == "" {
		t.Error("expected a default transcript path")
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmp := isolateHome(t)

	configDir := filepath.Join(tmp, ".ai-my-tickets")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}

	yaml := `
model_name: gemini-2.5-pro
ticket_api:
  base_url: http://tickets.internal/api/tickets/
  max_attempts: 4
  timeout: 3s
server:
  addr: 127.0.0.1:9000
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.ModelName != "gemini-2.5-pro" {
		t.Errorf("expected ModelName from file, got %q", cfg.ModelName)
	}
	if cfg.TicketAPI.MaxAttempts != 4 {
		t.Errorf("expected MaxAttempts 4 from file, got %d", cfg.TicketAPI.MaxAttempts)
	}
	if cfg.TicketAPI.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s from file, got %s", cfg.TicketAPI.Timeout)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("expected server addr from file, got %q", cfg.Server.Addr)
	}

	// Trailing slash on the base URL must be normalized away.
	if got, want := cfg.TicketAPI.BaseURL, "http://tickets.internal/api/tickets"; got != want {
		t.Errorf("base URL normalization: got %q, want %q", got, want)
	}
}

func TestEnvironmentVariableOverride(t *testing.T) {
	isolateHome(t)
	t.Setenv("TICKETS_API_BASE_URL", "http://override:9999/api/tickets//")
	t.Setenv("TICKETS_API_MAX_ATTEMPTS", "2")
	t.Setenv("TICKETS_MODEL_NAME", "gemini-2.0-flash")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if got, want := cfg.TicketAPI.BaseURL, "http://override:9999/api/tickets"; got != want {
		t.Errorf("env override base URL = %q, want %q", got, want)
	}
	if cfg.TicketAPI.MaxAttempts != 2 {
		t.Errorf("env override MaxAttempts = %d, want 2", cfg.TicketAPI.MaxAttempts)
	}
	if cfg.ModelName != "gemini-2.0-flash" {
		t.Errorf("env override ModelName = %q, want gemini-2.0-flash", cfg.ModelName)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmp := isolateHome(t)

	configDir := filepath.Join(tmp, ".ai-my-tickets")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		t.Fatalf("creating config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("model_name: [unclosed"), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestConfig_MarshalJSON_MasksAPIKey(t *testing.T) {
	cfg := validBaseConfig()
	cfg.APIKey = "super-secret-api-key-123"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	s := string(data)
	if strings.Contains(s, "super-secret-api-key-123") {
		t.Errorf("marshaled config leaks the API key: %s", s)
	}
	if !strings.Contains(s, maskedValue) {
		t.Errorf("marshaled config missing mask placeholder: %s", s)
	}
}

func TestConfig_String_MasksAPIKey(t *testing.T) {
	cfg := validBaseConfig()
	cfg.APIKey = "another-secret-value"

	if s := cfg.String(); strings.Contains(s, "another-secret-value") {
		t.Errorf("String() leaks the API key: %s", s)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "short fully masked", in: "abcd1234", want: maskedValue},
		{name: "long keeps edges", in: "my_long_secret_key_123", want: "my<" + maskedValue + ">23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.in); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{name: "bare model gets provider prefix", model: "gemini-2.5-flash", want: "googleai/gemini-2.5-flash"},
		{name: "qualified model kept as-is", model: "googleai/gemini-2.5-pro", want: "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: ProviderGoogleAI, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}
