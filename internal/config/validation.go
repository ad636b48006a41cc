package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Validate covers everything except LLM credentials; commands that talk to a
// model additionally call ValidateServe.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Model configuration
	if c.Provider != ProviderGoogleAI {
		return fmt.Errorf("%w: %q (supported: %s)", ErrInvalidProvider, c.Provider, ProviderGoogleAI)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	// 2. Conversation limits
	if c.MaxTurns < 1 || c.MaxTurns > 25 {
		return fmt.Errorf("%w: must be between 1 and 25, got %d", ErrInvalidMaxTurns, c.MaxTurns)
	}
	if c.MaxHistoryMessages < 1 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidHistory, MaxAllowedHistoryMessages, c.MaxHistoryMessages)
	}

	// 3. Ticket API client
	if err := c.TicketAPI.validate(); err != nil {
		return err
	}

	// 4. Listen addresses
	if err := validateAddr(c.Server.Addr); err != nil {
		return fmt.Errorf("%w: server.addr %q: %v", ErrInvalidAddr, c.Server.Addr, err)
	}
	if err := validateAddr(c.Simulator.Addr); err != nil {
		return fmt.Errorf("%w: simulator.addr %q: %v", ErrInvalidAddr, c.Simulator.Addr, err)
	}

	// 5. Simulator knobs
	if c.Simulator.FailureRate < 0 || c.Simulator.FailureRate > 1 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f",
			ErrInvalidFailureRate, c.Simulator.FailureRate)
	}
	if c.Simulator.LatencyMin < 0 || c.Simulator.LatencyMax < c.Simulator.LatencyMin {
		return fmt.Errorf("%w: got [%s, %s]",
			ErrInvalidLatency, c.Simulator.LatencyMin, c.Simulator.LatencyMax)
	}

	return nil
}

// ValidateServe adds the checks the serve command needs on top of Validate:
// reaching the model provider requires a credential.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}
	return nil
}

func (t *TicketAPIConfig) validate() error {
	u, err := url.Parse(t.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q (need scheme and host)", ErrInvalidBaseURL, t.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}

	if t.Timeout <= 0 {
		return fmt.Errorf("%w: must be positive, got %s", ErrInvalidTimeout, t.Timeout)
	}
	if t.MaxAttempts < 1 || t.MaxAttempts > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidMaxAttempts, t.MaxAttempts)
	}
	if t.BackoffInitial <= 0 {
		return fmt.Errorf("%w: backoff_initial must be positive, got %s", ErrInvalidBackoff, t.BackoffInitial)
	}
	if t.BackoffMax < t.BackoffInitial {
		return fmt.Errorf("%w: backoff_max %s is below backoff_initial %s",
			ErrInvalidBackoff, t.BackoffMax, t.BackoffInitial)
	}
	if t.BackoffMultiplier < 1.0 {
		return fmt.Errorf("%w: backoff_multiplier must be >= 1.0, got %g",
			ErrInvalidBackoff, t.BackoffMultiplier)
	}
	if t.MaxPages < 1 || t.MaxPages > 10000 {
		return fmt.Errorf("%w: must be between 1 and 10000, got %d", ErrInvalidMaxPages, t.MaxPages)
	}
	return nil
}

// validateAddr checks a host:port listen address. An empty host means all
// interfaces; port 0 means auto-assign.
func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("must be in host:port format: %w", err)
	}
	if port == "" {
		return fmt.Errorf("port is required")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("port must be numeric: %w", err)
	}
	if portNum < 0 || portNum > 65535 {
		return fmt.Errorf("port must be 0-65535, got %d", portNum)
	}
	return nil
}
