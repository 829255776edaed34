package tracing

import (
	"context"
	"testing"
)

func TestInitProviderShutdown(t *testing.T) {
	shutdown, err := InitProvider("aegis-test")
	if err != nil {
		t.Fatalf("InitProvider() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("InitProvider() returned nil shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestTracerStartsSpan(t *testing.T) {
	shutdown, err := InitProvider("aegis-test")
	if err != nil {
		t.Fatalf("InitProvider() error = %v", err)
	}
	defer shutdown(context.Background())

	tracer := Tracer("aegis-test")
	_, span := tracer.Start(context.Background(), "unit-test-span")
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Error("span context is not valid")
	}
}
