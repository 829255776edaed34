package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aegis-policy/aegis/internal/port/outbound"
)

var (
	declareText     string
	declareDoc      string
	declareAttrDocs []string
)

var declareCmd = &cobra.Command{
	Use:   "declare <rule>",
	Short: "Register a rule's text, attribute documentation, and description",
	Long: `Declare persists a rule's documentation to the configured rule/doc
store without requiring the rule's text; passing --text also installs the
text, but only if no rule by that name is already stored (spec.md §4.8).`,
	Args: cobra.ExactArgs(1),
	RunE: runDeclare,
}

var declareExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump the declare/doc registry as YAML",
	Long:  `Export prints every persisted rule's name, doc, and attribute documentation as YAML, for human review.`,
	Args:  cobra.NoArgs,
	RunE:  runDeclareExport,
}

func init() {
	declareCmd.Flags().StringVar(&declareText, "text", "", "rule source text, installed only if the rule does not already exist")
	declareCmd.Flags().StringVar(&declareDoc, "doc", "", "human-readable description of the rule")
	declareCmd.Flags().StringArrayVar(&declareAttrDocs, "attr-doc", nil, "attribute documentation in name=text form, repeatable")
	declareCmd.AddCommand(declareExportCmd)
	rootCmd.AddCommand(declareCmd)
}

func runDeclareExport(cmd *cobra.Command, args []string) error {
	_, stores, err := loadRuntime()
	if err != nil {
		return err
	}
	defer stores.Close()

	docs, err := stores.Docs.LoadDocs()
	if err != nil {
		return err
	}

	entries := make([]outbound.DocEntry, 0, len(docs))
	for _, entry := range docs {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	out, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal doc registry: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func runDeclare(cmd *cobra.Command, args []string) error {
	name := args[0]

	_, stores, err := loadRuntime()
	if err != nil {
		return err
	}
	defer stores.Close()

	attrDocs, err := parseAttrDocs(declareAttrDocs)
	if err != nil {
		return err
	}

	existing, err := stores.Rules.LoadRules()
	if err != nil {
		return err
	}
	text := declareText
	for _, spec := range existing {
		if spec.Name == name && spec.Text != "" {
			text = spec.Text // never overwrite already-installed text
			break
		}
	}

	spec := outbound.RuleSpec{Name: name, Text: text, Doc: declareDoc, AttrDocs: attrDocs}
	if err := stores.Rules.SaveRule(spec); err != nil {
		return err
	}
	if err := stores.Docs.SaveDoc(outbound.DocEntry{Name: name, Doc: declareDoc, AttrDocs: attrDocs}); err != nil {
		return err
	}

	fmt.Printf("declared %q\n", name)
	return nil
}

func parseAttrDocs(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("--attr-doc %q must be in name=text form", kv)
		}
		out[parts[0]] = parts[1]
	}
	return out, nil
}
