package services_test

import (
	"context"
	"testing"

	"tmamon/internal/services"
)

func TestContextRoundTrips(t *testing.T) {
	ctx := context.Background()

	if _, ok := services.BatchIDFromContext(ctx); ok {
		t.Fatal("expected no batch id on empty context")
	}

	ctx = services.WithBatchID(ctx, "batch-1")
	ctx = services.WithRecordPath(ctx, "/repo/XM123-24J/01/T1/AB/1/monitor.fhi")
	ctx = services.WithComponent(ctx, "ingest")

	if id, ok := services.BatchIDFromContext(ctx); !ok || id != "batch-1" {
		t.Fatalf("batch id = %q, ok=%v", id, ok)
	}
	if path, ok := services.RecordPathFromContext(ctx); !ok || path == "" {
		t.Fatalf("record path missing, ok=%v", ok)
	}
	if component, ok := services.ComponentFromContext(ctx); !ok || component != "ingest" {
		t.Fatalf("component = %q, ok=%v", component, ok)
	}
}

func TestEmptyValuesIgnored(t *testing.T) {
	ctx := services.WithBatchID(context.Background(), "")
	if _, ok := services.BatchIDFromContext(ctx); ok {
		t.Fatal("empty batch id should not be stored")
	}
}
