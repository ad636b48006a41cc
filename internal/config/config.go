// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (TICKETS_* overrides, GEMINI_API_KEY)
//  2. Config file (~/.ai-my-tickets/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - TicketAPI: base URL, per-attempt timeout, retry budget and backoff
//   - Server: SSE chat server listen address
//   - Simulator: the local unreliable-backend double
//   - LLM: provider, model, temperature
//
// Sensitive data (the API key) is masked in String()/MarshalJSON(). Validation
// is fail-fast with sentinel errors checkable via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidBaseURL indicates the ticket API base URL is missing or unusable.
	ErrInvalidBaseURL = errors.New("invalid ticket API base URL")

	// ErrInvalidTimeout indicates the per-attempt timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidMaxAttempts indicates the retry attempt ceiling is out of range.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts")

	// ErrInvalidBackoff indicates a backoff parameter is out of range.
	ErrInvalidBackoff = errors.New("invalid backoff")

	// ErrInvalidMaxPages indicates the pagination cap is out of range.
	ErrInvalidMaxPages = errors.New("invalid max pages")

	// ErrInvalidAddr indicates a listen address is malformed.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidFailureRate indicates the simulator failure rate is out of range.
	ErrInvalidFailureRate = errors.New("invalid failure rate")

	// ErrInvalidLatency indicates the simulator latency range is inverted or negative.
	ErrInvalidLatency = errors.New("invalid latency range")

	// ErrInvalidMaxTurns indicates the agent tool-loop turn limit is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidHistory indicates the history message limit is out of range.
	ErrInvalidHistory = errors.New("invalid history limit")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
)

const (
	// DefaultMaxHistoryMessages is the default number of messages loaded per turn.
	DefaultMaxHistoryMessages = 100

	// MaxAllowedHistoryMessages caps history loads to prevent OOM.
	MaxAllowedHistoryMessages = 10000
)

// TicketAPIConfig configures the resilient client for the ticketing backend.
type TicketAPIConfig struct {
	// BaseURL is the collection endpoint of the ticket backend,
	// e.g. "http://127.0.0.1:8200/api/tickets". Trailing slashes are
	// normalized away at load time.
	BaseURL string `mapstructure:"base_url" json:"base_url"`

	// Timeout bounds a single HTTP attempt, not the whole retried call.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`

	// MaxAttempts is the total attempt ceiling including the first try.
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts"`

	// BackoffInitial is the first wait and the floor for every later wait.
	BackoffInitial time.Duration `mapstructure:"backoff_initial" json:"backoff_initial"`

	// BackoffMax caps the exponential growth of waits.
	BackoffMax time.Duration `mapstructure:"backoff_max" json:"backoff_max"`

	// BackoffMultiplier scales the wait between consecutive attempts.
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier" json:"backoff_multiplier"`

	// MaxPages bounds a fetch-all pagination walk.
	MaxPages int `mapstructure:"max_pages" json:"max_pages"`
}

// ServerConfig configures the SSE chat server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// SimulatorConfig configures the local unreliable-backend simulator.
type SimulatorConfig struct {
	Addr        string        `mapstructure:"addr" json:"addr"`
	LatencyMin  time.Duration `mapstructure:"latency_min" json:"latency_min"`
	LatencyMax  time.Duration `mapstructure:"latency_max" json:"latency_max"`
	FailureRate float64       `mapstructure:"failure_rate" json:"failure_rate"`

	// Seed fixes the randomness for reproducible runs; 0 seeds from time.
	Seed int64 `mapstructure:"seed" json:"seed"`
}

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	APIKey      string  `mapstructure:"api_key" json:"api_key"` // SENSITIVE: masked in MarshalJSON

	// Conversation configuration
	MaxHistoryMessages int `mapstructure:"max_history_messages" json:"max_history_messages"`
	MaxTurns           int `mapstructure:"max_turns" json:"max_turns"`

	// Ticket backend client configuration
	TicketAPI TicketAPIConfig `mapstructure:"ticket_api" json:"ticket_api"`

	// HTTP server configuration
	Server ServerConfig `mapstructure:"server" json:"server"`

	// Local backend simulator configuration
	Simulator SimulatorConfig `mapstructure:"simulator" json:"simulator"`

	// OTLPEndpoint enables trace export when non-empty (host:port).
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`

	// TranscriptPath is where the chat CLI appends exchanges.
	TranscriptPath string `mapstructure:"transcript_path" json:"transcript_path"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.ai-my-tickets/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".ai-my-tickets")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Also support current directory

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// The client treats the base URL as the collection endpoint and joins
	// paths itself; normalize once here so every builder sees the same shape.
	cfg.TicketAPI.BaseURL = strings.TrimRight(cfg.TicketAPI.BaseURL, "/")

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	// AI defaults
	v.SetDefault("provider", ProviderGoogleAI)
	v.SetDefault("model_name", "gemini-2.5-flash")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("max_history_messages", DefaultMaxHistoryMessages)
	v.SetDefault("max_turns", 5)

	// Ticket API defaults. The attempt ceiling counts every attempt
	// including the first; waits grow from backoff_initial by
	// backoff_multiplier up to backoff_max.
	v.SetDefault("ticket_api.base_url", "http://127.0.0.1:8200/api/tickets")
	v.SetDefault("ticket_api.timeout", "10s")
	v.SetDefault("ticket_api.max_attempts", 6)
	v.SetDefault("ticket_api.backoff_initial", "500ms")
	v.SetDefault("ticket_api.backoff_max", "15s")
	v.SetDefault("ticket_api.backoff_multiplier", 2.0)
	v.SetDefault("ticket_api.max_pages", 50)

	// Server defaults
	v.SetDefault("server.addr", "127.0.0.1:8100")

	// Simulator defaults mirror the production backend's observed behavior:
	// uniform latency between 250ms and 2s, one request in four failing.
	v.SetDefault("simulator.addr", "127.0.0.1:8200")
	v.SetDefault("simulator.latency_min", "250ms")
	v.SetDefault("simulator.latency_max", "2s")
	v.SetDefault("simulator.failure_rate", 0.25)
	v.SetDefault("simulator.seed", 0)

	// Telemetry disabled unless an endpoint is configured.
	v.SetDefault("otlp_endpoint", "")

	v.SetDefault("transcript_path", filepath.Join(configDir, "transcript.jsonl"))
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is the only secret; everything else uses the TICKETS_ prefix.
func bindEnvVariables(v *viper.Viper) {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("api_key", "GEMINI_API_KEY")

	mustBind("provider", "TICKETS_PROVIDER")
	mustBind("model_name", "TICKETS_MODEL_NAME")

	mustBind("ticket_api.base_url", "TICKETS_API_BASE_URL")
	mustBind("ticket_api.timeout", "TICKETS_API_TIMEOUT")
	mustBind("ticket_api.max_attempts", "TICKETS_API_MAX_ATTEMPTS")

	mustBind("server.addr", "TICKETS_SERVER_ADDR")
	mustBind("simulator.addr", "TICKETS_SIM_ADDR")
	mustBind("simulator.failure_rate", "TICKETS_SIM_FAILURE_RATE")
	mustBind("simulator.seed", "TICKETS_SIM_SEED")

	mustBind("otlp_endpoint", "TICKETS_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of eight
// characters or fewer are fully masked; longer ones keep the first and last
// two characters for debug utility.
//
// This defends against accidental logging of real secrets, nothing more. If
// logs are compromised, rotate the secret.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - APIKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.APIKey = maskSecret(a.APIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit,
// e.g. "googleai/gemini-2.5-flash". A ModelName that already contains a
// "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return c.Provider + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
