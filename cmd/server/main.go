package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/EI94/Urbanova-sub017/common/id"
	"github.com/EI94/Urbanova-sub017/common/logger"
	"github.com/EI94/Urbanova-sub017/common/otel"
	"github.com/EI94/Urbanova-sub017/core/config"
	"github.com/EI94/Urbanova-sub017/core/db"
	"github.com/EI94/Urbanova-sub017/internal/http/middleware"
	httprouter "github.com/EI94/Urbanova-sub017/internal/http/router"
	"github.com/EI94/Urbanova-sub017/internal/queue"
	"github.com/EI94/Urbanova-sub017/internal/replan"
	"github.com/EI94/Urbanova-sub017/internal/service"
	"github.com/EI94/Urbanova-sub017/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "timeline server starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"store", cfg.StoreBackend)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	stores, txRunner, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open timeline store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	notifier, closeRedis, err := openNotifier(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer closeRedis()

	services := service.NewServices(stores, txRunner, notifier, replan.NewConfig(cfg.Replan))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// openStore returns the Postgres store after applying migrations, or the
// in-memory store for local runs.
func openStore(ctx context.Context, cfg config.Config) (service.StoreProvider, service.TxRunner, func(), error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		slog.WarnContext(ctx, "using in-memory timeline store, state is lost on restart")
		mem := store.NewMemory()
		return mem.Stores(), service.NewMemoryTxRunner(mem), func() {}, nil
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	slog.InfoContext(ctx, "database connected")

	return store.NewStores(database.Conn()), service.NewTxRunner(database), database.Close, nil
}

// openNotifier publishes lifecycle notifications to Redis when a pipeline is
// configured and drops them otherwise.
func openNotifier(ctx context.Context, cfg config.Config) (queue.Notifier, func(), error) {
	if !cfg.Pipeline.Enabled() {
		slog.InfoContext(ctx, "redis disabled, notifications are dropped")
		return queue.NewNopNotifier(slog.Default()), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}
	slog.InfoContext(ctx, "redis connected", "notification_stream", cfg.Pipeline.NotificationStream)

	notifier := queue.NewRedisNotifier(redisClient, cfg.Pipeline.NotificationStream, slog.Default())
	return notifier, func() { _ = redisClient.Close() }, nil
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		TraceHeaderName: cfg.Pipeline.TraceHeaderName,
	})

	return router
}

const banner = `
 _____ ___ __  __ _____ _     ___ _   _ _____
|_   _|_ _|  \/  | ____| |   |_ _| \ | | ____|
  | |  | || |\/| |  _| | |    | ||  \| |  _|
  | |  | || |  | | |___| |___ | || |\  | |___
  |_| |___|_|  |_|_____|_____|___|_| \_|_____|  server
`
