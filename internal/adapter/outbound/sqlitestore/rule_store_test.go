package sqlitestore_test

import (
	"path/filepath"
	"testing"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/sqlitestore"
	"github.com/aegis-policy/aegis/internal/port/outbound"
)

func openTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.db")
	s, err := sqlitestore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadDeleteRoundTrip(t *testing.T) {
	s := openTestStore(t)

	spec := outbound.RuleSpec{
		Name:     "checkout",
		Text:     "user.is_admin() or user == target",
		Doc:      "allows checkout",
		AttrDocs: map[string]string{"payment": "whether payment is captured"},
	}
	if err := s.SaveRule(spec); err != nil {
		t.Fatal(err)
	}

	rules, err := s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Name != "checkout" || rules[0].Text != spec.Text {
		t.Fatalf("got %+v, want %+v", rules, spec)
	}
	if rules[0].AttrDocs["payment"] != spec.AttrDocs["payment"] {
		t.Errorf("attr_docs round-trip mismatch: %v", rules[0].AttrDocs)
	}

	if err := s.DeleteRule("checkout"); err != nil {
		t.Fatal(err)
	}
	rules, err = s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 0 {
		t.Errorf("expected no rules after delete, got %v", rules)
	}

	if err := s.DeleteRule("nope"); err != nil {
		t.Errorf("deleting an absent rule must not error, got %v", err)
	}
}

func TestSaveRuleUpserts(t *testing.T) {
	s := openTestStore(t)
	s.SaveRule(outbound.RuleSpec{Name: "r", Text: "True"})
	s.SaveRule(outbound.RuleSpec{Name: "r", Text: "False"})

	rules, err := s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Text != "False" {
		t.Fatalf("expected upserted text False, got %v", rules)
	}
}

func TestLoadRulesOrderedByName(t *testing.T) {
	s := openTestStore(t)
	s.SaveRule(outbound.RuleSpec{Name: "zebra", Text: "True"})
	s.SaveRule(outbound.RuleSpec{Name: "alpha", Text: "True"})

	rules, err := s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 || rules[0].Name != "alpha" || rules[1].Name != "zebra" {
		t.Fatalf("expected alphabetical order, got %v", rules)
	}
}
