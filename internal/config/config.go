// Package config provides configuration types for the Aegis policy engine.
package config

import "time"

// Config is the top-level configuration for the aegis binary.
type Config struct {
	// EntrypointGroup names the plug-in group passed to the configured
	// EntrypointResolver when a rule references a name not found in
	// caller variables or builtins. Empty disables entrypoint resolution.
	EntrypointGroup string `yaml:"entrypoint_group" mapstructure:"entrypoint_group"`

	// RuleSource selects and configures the rule-storage backend.
	RuleSource RuleSourceConfig `yaml:"rule_source" mapstructure:"rule_source"`

	// MCP configures the optional MCP-backed EntrypointResolver.
	MCP MCPConfig `yaml:"mcp" mapstructure:"mcp"`

	// Server configures the optional "aegis serve" HTTP surface.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Metrics configures the Prometheus metrics endpoint.
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`

	// DevMode is accepted from config; no validation rule or command reads it.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// RuleSourceConfig selects the storage backend rules are loaded from.
type RuleSourceConfig struct {
	// Driver is "memory" or "sqlite". Defaults to "memory".
	Driver string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=memory sqlite"`
	// DSN is the sqlite file path when Driver is "sqlite".
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// MCPConfig configures the MCP-backed entrypoint resolver.
type MCPConfig struct {
	// Enabled turns on MCP tool discovery as an entrypoint source.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Command launches a local MCP server over stdio (mutually exclusive with URL).
	Command []string `yaml:"command" mapstructure:"command"`
	// URL connects to a streamable-HTTP MCP server (mutually exclusive with Command).
	URL string `yaml:"url" mapstructure:"url" validate:"omitempty,url"`
	// Timeout bounds the initial connection to the MCP server; tool listing
	// and tool calls are not time-limited.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig configures the optional evaluation HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8181".
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
	// AuthTokenHash is the argon2id hash of the bearer token required to
	// call /v1/evaluate. Empty means the endpoint is unauthenticated
	// (only suitable for DevMode / loopback use).
	AuthTokenHash string `yaml:"auth_token_hash" mapstructure:"auth_token_hash"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr    string `yaml:"addr" mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SetDefaults fills in zero-valued optional fields.
func (c *Config) SetDefaults() {
	if c.RuleSource.Driver == "" {
		c.RuleSource.Driver = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8181"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9181"
	}
	if c.MCP.Timeout == 0 {
		c.MCP.Timeout = 5 * time.Second
	}
}
