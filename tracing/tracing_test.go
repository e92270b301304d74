package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")

	if err := Init("stepflow", "0.0.1", fname); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "engine.execute test", "INTERNAL")
	span.WithAttributes(map[string]string{"run.id": "run-1"})

	_, child := StartSpan(ctx, "task.run extract", "INTERNAL")
	EndSpan(child, nil)
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("no data written to trace file")
	}
}

func TestSpanFromContext(t *testing.T) {
	if err := Init("stepflow", "0.0.1", filepath.Join(t.TempDir(), "span.txt")); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, ok := SpanFromContext(context.Background()); ok {
		t.Fatalf("expected no span on a bare context")
	}

	ctx, span := StartSpan(context.Background(), "test", "INTERNAL")
	defer EndSpan(span, nil)
	if _, ok := SpanFromContext(ctx); !ok {
		t.Fatalf("expected span on derived context")
	}
}
