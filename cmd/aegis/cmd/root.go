// Package cmd provides the CLI commands for the aegis binary.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aegis-policy/aegis/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "Aegis - an access-control policy evaluation engine",
	Long: `Aegis compiles and evaluates access-control policies written in a
small expression language against a runtime context, returning an
allow/deny verdict with optional attributes.

Quick start:
  1. Create a config file: aegis.yaml
  2. Declare a rule:  aegis declare checkout --text 'user.is_admin()'
  3. Evaluate it:     aegis eval checkout --var user=admin

Configuration is loaded from aegis.yaml in the current directory,
$HOME/.aegis/, or /etc/aegis/. Environment variables override config
values with the AEGIS_ prefix, e.g. AEGIS_RULE_SOURCE_DRIVER=sqlite.

Commands:
  eval            Evaluate a rule against variable bindings
  declare         Register a rule's text, attribute documentation, and description
  declare export  Dump the declare/doc registry as YAML
  validate        Compile every rule in a rule file and report parse errors
  serve           Start the evaluation HTTP server
  version         Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./aegis.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
