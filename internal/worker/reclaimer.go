package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"draftforge.app/engine/common/logger"
	"draftforge.app/engine/internal/queue"
)

type ReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer sweeps the consumer group for messages a dead worker left
// pending (crashed between XREADGROUP and XACK) and reprocesses them
// under its own consumer name. Each sweep walks the pending list with
// XAUTOCLAIM until the cursor wraps.
type Reclaimer struct {
	client    *redis.Client
	cfg       ReclaimerConfig
	consumer  *queue.RedisConsumer
	processor queue.MessageProcessor

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(client *redis.Client, cfg ReclaimerConfig, consumer *queue.RedisConsumer, processor queue.MessageProcessor) *Reclaimer {
	return &Reclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "engine.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream,
		"group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim sweep error", "error", err)
			}
		}
	}
}

func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// sweep claims and reprocesses every sufficiently idle pending message.
// XAUTOCLAIM advances a cursor through the pending list; "0-0" comes back
// as the next start once the list is exhausted.
func (r *Reclaimer) sweep(ctx context.Context) error {
	start := "0-0"
	for {
		claimed, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.cfg.Stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.MinIdle,
			Start:    start,
			Count:    r.cfg.BatchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("xautoclaim: %w", err)
		}

		if len(claimed) > 0 {
			slog.InfoContext(ctx, "claimed stale messages", "count", len(claimed))
		}
		for _, msg := range claimed {
			r.reprocess(ctx, msg)
		}

		if next == "0-0" || len(claimed) == 0 {
			return nil
		}
		start = next
	}
}

func (r *Reclaimer) reprocess(ctx context.Context, msg redis.XMessage) {
	msgID := msg.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID: &msgID,
	})

	parsed, err := queue.ParseMessage(msg)
	if err != nil {
		slog.ErrorContext(ctx, "reclaimed message is malformed, acknowledging to prevent loop",
			"error", err)
		_ = r.consumer.Ack(ctx, queue.Message{ID: msg.ID, Raw: msg})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:   &parsed.JobID,
		Attempt: &parsed.Attempt,
	})

	began := time.Now()
	if err := r.processor(ctx, parsed); err != nil {
		slog.ErrorContext(ctx, "reprocessing reclaimed message failed", "error", err)
		return
	}

	slog.InfoContext(ctx, "reclaimed message reprocessed",
		"duration_ms", time.Since(began).Milliseconds())
}
