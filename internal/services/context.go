package services

import "context"

type contextKey string

const (
	batchIDKey    contextKey = "batch_id"
	recordPathKey contextKey = "record_path"
	componentKey  contextKey = "component"
)

// WithBatchID annotates context with the import batch or archive job identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRecordPath annotates context with the canonical record path being operated on.
func WithRecordPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, recordPathKey, path)
}

// RecordPathFromContext extracts the canonical record path if present.
func RecordPathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(recordPathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithComponent annotates context with the component performing the operation.
func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, componentKey, component)
}

// ComponentFromContext returns the component name if present.
func ComponentFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
