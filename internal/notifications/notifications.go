// Package notifications delivers record status-change events to the operator
// surface. The core only depends on the Notifier interface; the CLI wires a
// log-backed implementation.
package notifications

import (
	"context"

	"log/slog"

	"tmamon/internal/logging"
	"tmamon/internal/record"
)

// Notifier receives a callback whenever a monitoring record changes status.
type Notifier interface {
	StatusChanged(ctx context.Context, recordPath string, from, to record.Status)
}

// LogNotifier writes status changes to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogNotifier{logger: logger.With(logging.String(logging.FieldComponent, "notifications"))}
}

func (n *LogNotifier) StatusChanged(ctx context.Context, recordPath string, from, to record.Status) {
	logging.WithContext(ctx, n.logger).Info("record status changed",
		logging.String(logging.FieldRecord, recordPath),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
		logging.String(logging.FieldEventType, "status_changed"),
	)
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) StatusChanged(context.Context, string, record.Status, record.Status) {}
