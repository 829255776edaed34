package cmd

import "testing"

func TestDeclareCmdRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "declare" {
			found = true
		}
	}
	if !found {
		t.Error("declare command not registered with rootCmd")
	}
}

func TestDeclareCmdFlags(t *testing.T) {
	for _, name := range []string{"text", "doc", "attr-doc"} {
		if declareCmd.Flags().Lookup(name) == nil {
			t.Errorf("--%s flag not registered", name)
		}
	}
}

func TestParseAttrDocs(t *testing.T) {
	docs, err := parseAttrDocs([]string{"limit=the request limit", "region=target region"})
	if err != nil {
		t.Fatalf("parseAttrDocs() error = %v", err)
	}
	if docs["limit"] != "the request limit" {
		t.Errorf("docs[limit] = %q", docs["limit"])
	}
	if docs["region"] != "target region" {
		t.Errorf("docs[region] = %q", docs["region"])
	}
}

func TestParseAttrDocsEmpty(t *testing.T) {
	docs, err := parseAttrDocs(nil)
	if err != nil {
		t.Fatalf("parseAttrDocs(nil) error = %v", err)
	}
	if docs != nil {
		t.Errorf("parseAttrDocs(nil) = %v, want nil", docs)
	}
}

func TestParseAttrDocsRejectsMalformed(t *testing.T) {
	if _, err := parseAttrDocs([]string{"noequals"}); err == nil {
		t.Error("parseAttrDocs() with no '=' should error")
	}
}

func TestDeclareExportCmdRegistered(t *testing.T) {
	found := false
	for _, c := range declareCmd.Commands() {
		if c.Name() == "export" {
			found = true
		}
	}
	if !found {
		t.Error("export subcommand not registered with declareCmd")
	}
}
