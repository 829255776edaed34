package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aegis-policy/aegis/internal/domain/value"
)

var evalVars []string

var evalCmd = &cobra.Command{
	Use:   "eval <rule>",
	Short: "Evaluate a rule against variable bindings",
	Long: `Evaluate loads every stored rule, compiles the named rule (or reuses
its cached compilation), runs it with the given --var bindings, and prints
the resulting verdict and any declared attributes.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringArrayVar(&evalVars, "var", nil, "variable binding in key=value form, repeatable")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	runtime, stores, err := loadRuntime()
	if err != nil {
		return err
	}
	defer stores.Close()

	variables, err := parseVars(evalVars)
	if err != nil {
		return err
	}

	authz, err := runtime.Evaluate(context.Background(), args[0], variables)
	if err != nil {
		return err
	}

	fmt.Printf("verdict: %v\n", authz.Verdict)
	for name, v := range authz.Attrs {
		fmt.Printf("  %s = %v\n", name, v)
	}
	return nil
}

// parseVars parses "key=value" flags into policy Values, inferring bool,
// int, float, and falling back to string (eval has no type annotations;
// this mirrors how a shell-facing CLI would guess the intended literal).
func parseVars(raw []string) (map[string]value.Value, error) {
	out := make(map[string]value.Value, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("--var %q must be in key=value form", kv)
		}
		out[parts[0]] = inferValue(parts[1])
	}
	return out, nil
}

func inferValue(s string) value.Value {
	if b, err := strconv.ParseBool(s); err == nil {
		return value.Bool(b)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.Str(s)
}
