package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"draftforge.app/engine/common/id"
	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/common/logger"
	"draftforge.app/engine/core/config"
	"draftforge.app/engine/core/db"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/images"
	"draftforge.app/engine/internal/pipeline"
	"draftforge.app/engine/internal/queue"
	"draftforge.app/engine/internal/search"
	"draftforge.app/engine/internal/store"
	"draftforge.app/engine/internal/worker"
)

const maxAttempts = 3

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)
	logger.Setup(cfg)

	slog.InfoContext(ctx, "engine worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node ID than the server so snowflake IDs never collide.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	jobs, closeDB, err := newJobStore(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    1, // One job at a time; a single job already fans out internally
		Block:        5 * time.Second,
		MaxAttempts:  maxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	routerLLM, err := llm.New(llm.Config{
		APIKey:  cfg.RouterLLM.APIKey,
		BaseURL: cfg.RouterLLM.BaseURL,
		Model:   cfg.RouterLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create router llm client", "error", err)
		os.Exit(1)
	}

	writerLLM, err := llm.New(llm.Config{
		APIKey:  cfg.WriterLLM.APIKey,
		BaseURL: cfg.WriterLLM.BaseURL,
		Model:   cfg.WriterLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create writer llm client", "error", err)
		os.Exit(1)
	}

	if !cfg.Search.Enabled() {
		slog.WarnContext(ctx, "no search api key configured, research will run without sources")
	}

	bus := event.NewBus(cfg.Workflow.EventHistoryCap)
	bus.Tap(event.PublishTap(redisClient, event.DefaultChannelPrefix))

	builder := pipeline.NewBuilder(
		routerLLM,
		writerLLM,
		search.NewTavilyProvider(cfg.Search),
		search.NewPageReader(cfg.Search),
		images.NewOpenAIGenerator(cfg.Images),
		bus,
		pipeline.Config{
			MaxParallelWorkers: cfg.Workflow.MaxParallelWorkers,
			AssetsDir:          cfg.Workflow.AssetsDir,
			ImagesEnabled:      cfg.Images.Enabled(),
		},
	)

	w := worker.New(consumer, jobs, builder, bus, worker.Config{
		MaxAttempts: maxAttempts,
	})

	reclaimer := worker.NewReclaimer(redisClient, worker.ReclaimerConfig{
		Stream:    cfg.Pipeline.RedisStream,
		Group:     cfg.Pipeline.RedisGroup,
		Consumer:  cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first (quick), then the worker, which may be mid-job.
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// newJobStore mirrors the server's store selection so a databaseless dev
// setup still runs, with job state local to the process.
func newJobStore(ctx context.Context, cfg config.Config) (store.JobStore, func(), error) {
	if cfg.DB.DSN == "" {
		slog.WarnContext(ctx, "no database configured, using in-memory job store")
		return store.NewMemoryJobStore(), func() {}, nil
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	slog.InfoContext(ctx, "database connected")
	return store.NewJobStore(database), database.Close, nil
}

const banner = `
██████╗ ██╗██████╗ ███████╗██╗     ██╗███╗   ██╗███████╗
██╔══██╗██║██╔══██╗██╔════╝██║     ██║████╗  ██║██╔════╝
██████╔╝██║██████╔╝█████╗  ██║     ██║██╔██╗ ██║█████╗
██╔═══╝ ██║██╔═══╝ ██╔══╝  ██║     ██║██║╚██╗██║██╔══╝
██║     ██║██║     ███████╗███████╗██║██║ ╚████║███████╗
██║     ╚═╝╚═╝     ╚══════╝╚══════╝╚═╝╚═╝  ╚═══╝╚══════╝
`
