package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/lang"
	"github.com/aegis-policy/aegis/internal/domain/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Compile every rule in a YAML rule file and report parse errors",
	Long: `Validate reads a YAML file containing a list of {name, text} rules
and compiles each one's text, printing a ParseError's line and column for
any rule that fails to parse. Exits non-zero if any rule failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type ruleFileEntry struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read rule file: %w", err)
	}

	var entries []ruleFileEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse rule file: %w", err)
	}

	failed := 0
	for _, entry := range entries {
		if _, err := lang.Compile(entry.Text); err != nil {
			failed++
			var parseErr *policy.ParseError
			if errors.As(err, &parseErr) {
				fmt.Printf("%s: parse error at %d:%d: %s\n", entry.Name, parseErr.Line, parseErr.Column, parseErr.Msg)
			} else {
				fmt.Printf("%s: %v\n", entry.Name, err)
			}
			continue
		}
		fmt.Printf("%s: ok\n", entry.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d rules failed to parse", failed, len(entries))
	}
	return nil
}
