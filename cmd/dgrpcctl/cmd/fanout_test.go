package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFanoutHandlerDispatchesToEachHandler(t *testing.T) {
	var a, b bytes.Buffer
	fan := fanoutHandler{
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	}

	logger := slog.New(&fan)
	logger.Info("hello", "key", "value")

	if !strings.Contains(a.String(), "hello") {
		t.Fatalf("handler a missing record: %q", a.String())
	}
	if !strings.Contains(b.String(), "hello") {
		t.Fatalf("handler b missing record: %q", b.String())
	}
}

func TestFanoutHandlerEnabledIfAnyHandlerEnabled(t *testing.T) {
	fan := fanoutHandler{
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}),
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}

	if !fan.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected Enabled(Debug) to be true when one handler accepts it")
	}
	if fan.Enabled(context.Background(), slog.LevelDebug-4) {
		t.Fatal("expected an even lower level to be rejected by both handlers")
	}
}

func TestFanoutHandlerWithAttrsPropagatesToEachHandler(t *testing.T) {
	var a bytes.Buffer
	fan := fanoutHandler{slog.NewTextHandler(&a, nil)}

	withAttrs := fan.WithAttrs([]slog.Attr{slog.String("component", "test")})
	logger := slog.New(withAttrs)
	logger.Info("tagged")

	if !strings.Contains(a.String(), "component=test") {
		t.Fatalf("expected attr to propagate, got %q", a.String())
	}
}
