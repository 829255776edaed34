package memory_test

import (
	"testing"

	"github.com/aegis-policy/aegis/internal/adapter/outbound/memory"
	"github.com/aegis-policy/aegis/internal/port/outbound"
)

func TestRuleStoreSaveLoadDelete(t *testing.T) {
	s := memory.NewRuleStore()
	if err := s.SaveRule(outbound.RuleSpec{Name: "b", Text: "True"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRule(outbound.RuleSpec{Name: "a", Text: "False"}); err != nil {
		t.Fatal(err)
	}

	rules, err := s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 2 || rules[0].Name != "a" || rules[1].Name != "b" {
		t.Fatalf("expected sorted [a b], got %v", rules)
	}

	if err := s.DeleteRule("a"); err != nil {
		t.Fatal(err)
	}
	rules, err = s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Name != "b" {
		t.Fatalf("expected only [b] remaining, got %v", rules)
	}

	if err := s.DeleteRule("nope"); err != nil {
		t.Errorf("deleting an absent rule must not error, got %v", err)
	}
}

func TestRuleStoreSaveOverwrites(t *testing.T) {
	s := memory.NewRuleStore()
	s.SaveRule(outbound.RuleSpec{Name: "r", Text: "True"})
	s.SaveRule(outbound.RuleSpec{Name: "r", Text: "False"})
	rules, _ := s.LoadRules()
	if len(rules) != 1 || rules[0].Text != "False" {
		t.Fatalf("expected overwritten text False, got %v", rules)
	}
}
