package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        Info,
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"bogus":   Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Fatalf("expected json format")
	}
	if ParseFormat("anything") != FormatText {
		t.Fatalf("expected text fallback")
	}
}

func TestZapLogger_WithMergesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core)).With(map[string]any{"component": "bus"})

	l.Warn("callback failed", map[string]any{
		"event_type": "image_data",
		"err":        errors.New("boom"),
		"":           "ignored",
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "callback failed" {
		t.Fatalf("unexpected entry: %+v", e.Entry)
	}
	ctx := e.ContextMap()
	if ctx["component"] != "bus" || ctx["event_type"] != "image_data" {
		t.Fatalf("missing fields: %#v", ctx)
	}
	if ctx["err"] != "boom" {
		t.Fatalf("expected error field, got %#v", ctx["err"])
	}
	if _, ok := ctx[""]; ok {
		t.Fatalf("empty key must be skipped")
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	l, err := New(Options{Level: Error, Format: FormatJSON, App: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	zl, ok := l.(*ZapLogger)
	if !ok {
		t.Fatalf("expected *ZapLogger, got %T", l)
	}
	if zl.z.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be disabled at error level")
	}
	if !zl.z.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error must be enabled")
	}
}
