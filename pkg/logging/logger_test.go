package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewRespectsLevel(t *testing.T) {
	l, err := New("production", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zap.WarnLevel) {
		t.Fatalf("warn should be enabled at warn level")
	}
}

func TestNewIgnoresBadLevel(t *testing.T) {
	l, err := New("dev", "loud")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("development config should keep debug enabled")
	}
}

func TestContextLogger(t *testing.T) {
	base := zaptest.NewLogger(t)
	ctx := WithLogger(context.Background(), base)
	if L(ctx) != base {
		t.Fatalf("expected the attached logger back")
	}

	if L(context.Background()) == nil {
		t.Fatalf("expected default logger for bare context")
	}

	ctx = WithFields(ctx, zap.String("request_id", "abc"))
	if L(ctx) == base {
		t.Fatalf("WithFields should derive a new logger")
	}
}
