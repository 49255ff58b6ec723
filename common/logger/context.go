package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are structured fields added to every log record written with a
// context carrying them. Services enrich the context once and log freely.
type LogFields struct {
	ProjectID  *string // Project whose timeline is being read or changed
	TriggerID  *int64  // Re-plan trigger ID
	ProposalID *int64  // Re-plan proposal ID
	FactID     *string // External fact that caused the work
	MessageID  *string // Redis stream message ID
	Component  string  // Component name, e.g. "timeline.service.lifecycle"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, newer non-nil/non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.ProjectID != nil {
		result.ProjectID = new.ProjectID
	}
	if new.TriggerID != nil {
		result.TriggerID = new.TriggerID
	}
	if new.ProposalID != nil {
		result.ProposalID = new.ProposalID
	}
	if new.FactID != nil {
		result.FactID = new.FactID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful inline: logger.WithLogFields(ctx, logger.LogFields{ProjectID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
