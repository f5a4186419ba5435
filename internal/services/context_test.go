package services_test

import (
	"context"
	"testing"

	"meetscribe/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRecordingID(ctx, "rec-1")
	ctx = services.WithOperation(ctx, "upload")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RecordingIDFromContext(ctx); !ok || id != "rec-1" {
		t.Fatalf("unexpected recording id: %v %v", id, ok)
	}
	if op, ok := services.OperationFromContext(ctx); !ok || op != "upload" {
		t.Fatalf("unexpected operation: %v %v", op, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithOperation(ctx, "")
	ctx = services.WithRecordingID(ctx, "")
	if _, ok := services.OperationFromContext(ctx); ok {
		t.Fatal("expected no operation value")
	}
	if _, ok := services.RecordingIDFromContext(ctx); ok {
		t.Fatal("expected no recording id value")
	}
}
