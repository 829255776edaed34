package mcpresolver

import (
	"testing"

	"github.com/aegis-policy/aegis/internal/domain/value"
)

func TestToAnyWidensScalars(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want any
	}{
		{"bool", value.Bool(true), true},
		{"int", value.Int(7), int64(7)},
		{"float", value.Float(1.5), 1.5},
		{"str", value.Str("x"), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toAny(tt.in); got != tt.want {
				t.Errorf("toAny(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToAnyAggregateKindsAreNil(t *testing.T) {
	if got := toAny(value.Nothing); got != nil {
		t.Errorf("toAny(Nothing) = %v, want nil", got)
	}
	s, err := value.NewSet(value.Int(1))
	if err != nil {
		t.Fatal(err)
	}
	if got := toAny(value.FromSet(s)); got != nil {
		t.Errorf("toAny(set) = %v, want nil", got)
	}
}
