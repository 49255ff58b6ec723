package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/redis/go-redis/v9"
)

type FactMessage struct {
	Change  model.FactChange
	TraceID *string
	Attempt int
}

// Producer publishes fact-change events onto the inbound stream.
type Producer interface {
	Enqueue(ctx context.Context, msg FactMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg FactMessage) error {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	payload, err := json.Marshal(msg.Change)
	if err != nil {
		return fmt.Errorf("encoding fact change: %w", err)
	}

	fields := map[string]any{
		"task_type":  string(TaskTypeFactChange),
		"project_id": msg.Change.ProjectID,
		"fact_id":    msg.Change.FactID,
		"payload":    string(payload),
		"attempt":    attempt,
	}

	if msg.TraceID != nil && *msg.TraceID != "" {
		fields["trace_id"] = *msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue fact change: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued fact change",
		"project_id", msg.Change.ProjectID,
		"fact_id", msg.Change.FactID,
		"fact_version", msg.Change.FactVersion,
		"attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
