package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EI94/Urbanova-sub017/common/logger"
	"github.com/EI94/Urbanova-sub017/internal/queue"
)

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// RedisReclaimer re-drives fact changes left pending by a worker that died
// between XREADGROUP and XACK. Entries are taken over with XAUTOCLAIM so two
// reclaimers never process the same entry in one sweep.
type RedisReclaimer struct {
	client    *redis.Client
	cfg       RedisReclaimerConfig
	consumer  Consumer
	processor queue.MessageProcessor

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRedisReclaimer wires processor, normally Worker.HandleMessage, to stale entries.
func NewRedisReclaimer(client *redis.Client, cfg RedisReclaimerConfig, consumer Consumer, processor queue.MessageProcessor) *RedisReclaimer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Run sweeps the pending entries list every Interval until Stop is called or
// ctx is done.
func (r *RedisReclaimer) Run(ctx context.Context) {
	defer close(r.doneCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "timeline.worker.reclaimer",
	})
	slog.InfoContext(ctx, "reclaimer started",
		"stream", r.cfg.Stream,
		"min_idle", r.cfg.MinIdle,
		"interval", r.cfg.Interval)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			n, err := r.sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reclaim sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "reclaim sweep finished", "reclaimed", n)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// sweep walks the PEL with the XAUTOCLAIM cursor and returns how many entries
// it took over.
func (r *RedisReclaimer) sweep(ctx context.Context) (int, error) {
	cursor := "0-0"
	total := 0
	for {
		msgs, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.cfg.Stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.MinIdle,
			Start:    cursor,
			Count:    r.cfg.BatchSize,
		}).Result()
		if err != nil {
			return total, fmt.Errorf("xautoclaim: %w", err)
		}

		for _, m := range msgs {
			r.redrive(ctx, m)
		}
		total += len(msgs)

		if next == "0-0" || next == "" || ctx.Err() != nil {
			return total, nil
		}
		cursor = next
	}
}

func (r *RedisReclaimer) redrive(ctx context.Context, raw redis.XMessage) {
	msgID := raw.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &msgID})

	msg, err := queue.ParseMessage(raw)
	if err != nil {
		// An unparseable entry would be reclaimed forever.
		slog.WarnContext(ctx, "dead-lettering unparseable pending entry", "error", err)
		if dlqErr := r.consumer.SendDLQ(ctx, queue.Message{ID: raw.ID, Raw: raw}, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to dead-letter pending entry", "error", dlqErr)
		}
		return
	}

	start := time.Now()
	if err := r.processor(ctx, msg); err != nil {
		// The processor already requeued or dead-lettered the entry.
		slog.WarnContext(ctx, "reclaimed fact change failed",
			"project_id", msg.Change.ProjectID,
			"fact_id", msg.Change.FactID,
			"error", err)
		return
	}
	slog.InfoContext(ctx, "reclaimed fact change processed",
		"project_id", msg.Change.ProjectID,
		"fact_id", msg.Change.FactID,
		"duration_ms", time.Since(start).Milliseconds())
}
