package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/frontdesk/internal/notify"
)

// ValidLLMProviderNames lists known LLM provider names. Used by [Validate] to
// warn about unrecognised names.
var ValidLLMProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// countryCodePattern matches an international dialling prefix such as "+33"
// or "+1".
var countryCodePattern = regexp.MustCompile(`^\+[1-9][0-9]{0,2}$`)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Agent
	if cfg.Agent.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Agent.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("agent.timezone %q is not a valid IANA timezone name", cfg.Agent.Timezone))
		}
	}
	if cfg.Agent.Language != "" && !notify.Language(cfg.Agent.Language).IsValid() {
		errs = append(errs, fmt.Errorf("agent.language %q is invalid; valid values: de, fr, en", cfg.Agent.Language))
	}
	if cfg.Agent.CountryCode != "" && !countryCodePattern.MatchString(cfg.Agent.CountryCode) {
		errs = append(errs, fmt.Errorf("agent.country_code %q is invalid; expected a prefix like +33", cfg.Agent.CountryCode))
	}
	if cfg.Agent.MaxToolSteps < 0 {
		errs = append(errs, fmt.Errorf("agent.max_tool_steps must not be negative, got %d", cfg.Agent.MaxToolSteps))
	}

	// Calendar
	if cfg.Calendar.Provider != "" && !cfg.Calendar.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("calendar.provider %q is invalid; valid values: calcom, fake", cfg.Calendar.Provider))
	}
	if cfg.Calendar.Provider == CalendarCalCom && cfg.Calendar.APIKey == "" {
		errs = append(errs, errors.New("calendar.api_key is required when calendar.provider is calcom"))
	}
	if cfg.Calendar.EventDurationMin < 0 {
		errs = append(errs, fmt.Errorf("calendar.event_duration_min must not be negative, got %d", cfg.Calendar.EventDurationMin))
	}

	// SMS: either fully configured or fully absent.
	smsFields := []string{cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber}
	set := 0
	for _, f := range smsFields {
		if f != "" {
			set++
		}
	}
	if set > 0 && set < len(smsFields) {
		errs = append(errs, errors.New("sms requires account_sid, auth_token, and from_number together; set all three or none"))
	}
	if set == 0 {
		slog.Warn("sms credentials are not configured; confirmation messages will not be sent")
	}

	// Providers
	validateLLMProviderName(cfg.Providers.LLM.Name)
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the assistant cannot run in chat mode")
	}

	return errors.Join(errs...)
}

// validateLLMProviderName logs a warning if name is non-empty and not found in
// [ValidLLMProviderNames].
func validateLLMProviderName(name string) {
	if name == "" || slices.Contains(ValidLLMProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", "llm",
		"name", name,
		"known", ValidLLMProviderNames,
	)
}
