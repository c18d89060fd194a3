package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	ctx := IntoContext(context.Background(), logger.With(FieldRequestID, "req-123"))
	FromContext(ctx).Info("handled")

	out := buf.String()
	if !strings.Contains(out, "req-123") {
		t.Errorf("output missing request id: %q", out)
	}
	if !strings.Contains(out, "handled") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, ComponentHTTP) {
		t.Errorf("output missing component: %q", out)
	}
}

func TestFromContext_Fallback(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("expected a usable fallback logger")
	}
	// Must not panic even without anything stored.
	logger.Debug("noop")
}
