package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/EI94/Urbanova-sub017/core/config"
	"github.com/EI94/Urbanova-sub017/internal/model"
	"github.com/EI94/Urbanova-sub017/internal/queue"
)

func publishCmd() *cobra.Command {
	var traceID string

	cmd := &cobra.Command{
		Use:   "publish <fact.json>",
		Short: "Publish a fact change to the worker's inbound stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var change model.FactChange
			if err := readJSON(args[0], &change); err != nil {
				return err
			}
			if err := change.Validate(); err != nil {
				return err
			}

			cfg, err := config.Load(config.ServiceTypeCLI)
			if err != nil {
				return err
			}
			opts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
			if err != nil {
				return fmt.Errorf("parse redis url: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			producer := queue.NewRedisProducer(redis.NewClient(opts), cfg.Pipeline.RedisStream, slog.Default())
			defer producer.Close()

			msg := queue.FactMessage{Change: change}
			if traceID != "" {
				msg.TraceID = &traceID
			}
			if err := producer.Enqueue(ctx, msg); err != nil {
				return err
			}

			fmt.Printf("%s %s v%d -> %s\n", green("published"), change.FactID, change.FactVersion, cfg.Pipeline.RedisStream)
			return nil
		},
	}

	cmd.Flags().StringVar(&traceID, "trace-id", "", "Trace id to link the worker span to")

	return cmd
}
