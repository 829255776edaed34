package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if c.RuleSource.Driver == "sqlite" && c.RuleSource.DSN == "" {
		return fmt.Errorf("rule_source.dsn is required when rule_source.driver is \"sqlite\"")
	}

	if c.MCP.Enabled && len(c.MCP.Command) == 0 && c.MCP.URL == "" {
		return fmt.Errorf("mcp.command or mcp.url is required when mcp.enabled is true")
	}
	if c.MCP.Enabled && len(c.MCP.Command) > 0 && c.MCP.URL != "" {
		return fmt.Errorf("mcp.command and mcp.url are mutually exclusive")
	}

	return nil
}

// formatValidationErrors converts validator errors into a single readable message.
func formatValidationErrors(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var msgs []string
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
