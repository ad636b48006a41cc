package config

import (
	"errors"
	"testing"
	"time"
)

// validBaseConfig returns a Config with every required field set.
func validBaseConfig() *Config {
	return &Config{
		Provider:           ProviderGoogleAI,
		ModelName:          "gemini-2.5-flash",
		Temperature:        0.0,
		MaxHistoryMessages: 100,
		MaxTurns:           5,
		TicketAPI: TicketAPIConfig{
			BaseURL:           "http://127.0.0.1:8200/api/tickets",
			Timeout:           10 * time.Second,
			MaxAttempts:       6,
			BackoffInitial:    500 * time.Millisecond,
			BackoffMax:        15 * time.Second,
			BackoffMultiplier: 2.0,
			MaxPages:          50,
		},
		Server:    ServerConfig{Addr: "127.0.0.1:8100"},
		Simulator: SimulatorConfig{Addr: "127.0.0.1:8200", LatencyMin: 0, LatencyMax: time.Second, FailureRate: 0.25},
	}
}

func TestValidateSuccess(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error with valid config: %v", err)
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "unsupported provider",
			mutate:  func(c *Config) { c.Provider = "ollama" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "temperature above range",
			mutate:  func(c *Config) { c.Temperature = 2.5 },
			wantErr: ErrInvalidTemperature,
		},
		{
			name:    "zero max turns",
			mutate:  func(c *Config) { c.MaxTurns = 0 },
			wantErr: ErrInvalidMaxTurns,
		},
		{
			name:    "history limit too high",
			mutate:  func(c *Config) { c.MaxHistoryMessages = MaxAllowedHistoryMessages + 1 },
			wantErr: ErrInvalidHistory,
		},
		{
			name:    "base URL without scheme",
			mutate:  func(c *Config) { c.TicketAPI.BaseURL = "127.0.0.1:8200/api/tickets" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "base URL with unsupported scheme",
			mutate:  func(c *Config) { c.TicketAPI.BaseURL = "ftp://host/api/tickets" },
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:    "non-positive timeout",
			mutate:  func(c *Config) { c.TicketAPI.Timeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.TicketAPI.MaxAttempts = 0 },
			wantErr: ErrInvalidMaxAttempts,
		},
		{
			name:    "backoff max below initial",
			mutate:  func(c *Config) { c.TicketAPI.BackoffMax = 100 * time.Millisecond },
			wantErr: ErrInvalidBackoff,
		},
		{
			name:    "shrinking multiplier",
			mutate:  func(c *Config) { c.TicketAPI.BackoffMultiplier = 0.5 },
			wantErr: ErrInvalidBackoff,
		},
		{
			name:    "zero page cap",
			mutate:  func(c *Config) { c.TicketAPI.MaxPages = 0 },
			wantErr: ErrInvalidMaxPages,
		},
		{
			name:    "server addr without port",
			mutate:  func(c *Config) { c.Server.Addr = "127.0.0.1" },
			wantErr: ErrInvalidAddr,
		},
		{
			name:    "simulator failure rate above one",
			mutate:  func(c *Config) { c.Simulator.FailureRate = 1.5 },
			wantErr: ErrInvalidFailureRate,
		},
		{
			name:    "inverted latency range",
			mutate:  func(c *Config) { c.Simulator.LatencyMin = 2 * time.Second; c.Simulator.LatencyMax = time.Second },
			wantErr: ErrInvalidLatency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateServe(t *testing.T) {
	t.Run("missing API key", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.APIKey = ""

		if err := cfg.ValidateServe(); !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("ValidateServe() error = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("key present", func(t *testing.T) {
		cfg := validBaseConfig()
		cfg.APIKey = "test-api-key"

		if err := cfg.ValidateServe(); err != nil {
			t.Errorf("ValidateServe() unexpected error: %v", err)
		}
	})
}

func TestValidateAddrForms(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{addr: "127.0.0.1:8100", wantErr: false},
		{addr: ":8100", wantErr: false}, // all interfaces
		{addr: "localhost:0", wantErr: false},
		{addr: "127.0.0.1", wantErr: true},
		{addr: "127.0.0.1:http", wantErr: true},
		{addr: "127.0.0.1:70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := validateAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			}
		})
	}
}
