package logging

import (
	"context"
	"log/slog"

	"docflow/internal/services"
)

const (
	FieldComponent     = "component"
	FieldEpisodeID     = "episode_id"
	FieldPhase         = "phase"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type" // classifies warnings for log searches
	FieldErrorHint     = "error_hint" // the operator's next step
)

// contextFields collects the episode, phase, and request ID stored on ctx by
// the services package.
func contextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	fields := make([]any, 0, 3)
	if id, ok := services.EpisodeIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEpisodeID, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns logger tagged with the episode, phase, and
// correlation fields carried by ctx. Fields already present on logger are
// not deduplicated, so call it once per operation.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := contextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}
