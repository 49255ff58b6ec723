package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type NotificationKind string

const (
	NotificationTriggerProposed  NotificationKind = "trigger_proposed"
	NotificationProposalApplied  NotificationKind = "proposal_applied"
	NotificationProposalRejected NotificationKind = "proposal_rejected"
)

// Notification is one outbound lifecycle event. Payload is encoded as JSON.
type Notification struct {
	Kind       NotificationKind
	ProjectID  string
	TriggerID  int64
	ProposalID int64
	Payload    any
	TraceID    *string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type redisNotifier struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisNotifier(client *redis.Client, stream string, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisNotifier{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (n *redisNotifier) Notify(ctx context.Context, note Notification) error {
	payload, err := json.Marshal(note.Payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", note.Kind, err)
	}

	fields := map[string]any{
		"kind":        string(note.Kind),
		"project_id":  note.ProjectID,
		"trigger_id":  note.TriggerID,
		"proposal_id": note.ProposalID,
		"payload":     string(payload),
	}
	if note.TraceID != nil && *note.TraceID != "" {
		fields["trace_id"] = *note.TraceID
	}

	if err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	n.logger.InfoContext(ctx, "published notification",
		"kind", note.Kind,
		"project_id", note.ProjectID,
		"trigger_id", note.TriggerID,
		"proposal_id", note.ProposalID)
	return nil
}

type nopNotifier struct {
	logger *slog.Logger
}

// NewNopNotifier returns a Notifier that only logs. Used when no Redis is configured.
func NewNopNotifier(logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &nopNotifier{logger: logger}
}

func (n *nopNotifier) Notify(ctx context.Context, note Notification) error {
	n.logger.DebugContext(ctx, "notification dropped, no stream configured",
		"kind", note.Kind,
		"project_id", note.ProjectID,
		"proposal_id", note.ProposalID)
	return nil
}
