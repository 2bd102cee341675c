// Package config provides the configuration schema and loader for the
// Frontdesk appointment assistant.
package config

// LogLevel controls log verbosity for the Frontdesk server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CalendarProvider selects the booking backend.
type CalendarProvider string

const (
	// CalendarCalCom books through the Cal.com v2 REST API.
	CalendarCalCom CalendarProvider = "calcom"

	// CalendarFake generates random in-memory availability. For development
	// and demos only.
	CalendarFake CalendarProvider = "fake"
)

// IsValid reports whether p is a recognised calendar provider.
func (p CalendarProvider) IsValid() bool {
	return p == CalendarCalCom || p == CalendarFake
}

// Config is the root configuration structure for Frontdesk.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Agent     AgentConfig     `yaml:"agent"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	SMS       SMSConfig       `yaml:"sms"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds network and logging settings for the Frontdesk server.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics endpoint listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AgentConfig holds the conversational settings of the assistant.
type AgentConfig struct {
	// Timezone is the IANA name of the office timezone all spoken dates are
	// rendered in (e.g., "Europe/Paris").
	Timezone string `yaml:"timezone"`

	// Language is the language the assistant speaks: de, fr, or en.
	Language string `yaml:"language"`

	// CountryCode is the international prefix applied to phone numbers given
	// in national format (e.g., "+33").
	CountryCode string `yaml:"country_code"`

	// Greeting overrides the spoken opening line. Leave empty for the
	// built-in default of the configured language.
	Greeting string `yaml:"greeting"`

	// MaxToolSteps bounds the number of LLM round-trips per user turn.
	// Zero means the built-in default.
	MaxToolSteps int `yaml:"max_tool_steps"`
}

// CalendarConfig selects and configures the booking backend.
type CalendarConfig struct {
	// Provider selects the backend implementation.
	Provider CalendarProvider `yaml:"provider"`

	// APIKey authenticates against the Cal.com API. Required when Provider
	// is "calcom".
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the Cal.com API root. Leave empty for the default.
	BaseURL string `yaml:"base_url"`

	// EventTypeSlug names the Cal.com event type appointments are booked
	// under. Created on startup when missing.
	EventTypeSlug string `yaml:"event_type_slug"`

	// EventDurationMin is the appointment length in minutes used when the
	// event type has to be created.
	EventDurationMin int `yaml:"event_duration_min"`
}

// SMSConfig holds Twilio credentials for confirmation messages. When all
// fields are empty, SMS delivery is disabled.
type SMSConfig struct {
	// AccountSID is the Twilio account identifier.
	AccountSID string `yaml:"account_sid"`

	// AuthToken is the Twilio API auth token.
	AuthToken string `yaml:"auth_token"`

	// FromNumber is the sending phone number in E.164 format.
	FromNumber string `yaml:"from_number"`

	// BaseURL overrides the Twilio API root. Leave empty for the default.
	BaseURL string `yaml:"base_url"`
}

// ProvidersConfig declares which LLM backend drives the conversation.
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
}

// ProviderEntry is the common configuration block shared by all provider types.
type ProviderEntry struct {
	// Name selects the provider implementation (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}
