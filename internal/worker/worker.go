// Package worker consumes queued generation jobs and drives them through
// the pipeline, persisting progress and terminal state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"draftforge.app/engine/common/logger"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/pipeline"
	"draftforge.app/engine/internal/queue"
	"draftforge.app/engine/internal/store"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer *queue.RedisConsumer
	jobs     store.JobStore
	builder  *pipeline.Builder
	bus      *event.Bus
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, jobs store.JobStore, builder *pipeline.Builder, bus *event.Bus, cfg Config) *Worker {
	return &Worker{
		consumer:  consumer,
		jobs:      jobs,
		builder:   builder,
		bus:       bus,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"job_id", msg.JobID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"job_id", msg.JobID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs one job through the pipeline. An infrastructure
// error (store, queue) is returned so the message retries; a fatal
// pipeline error marks the job FAILED and acks.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:     logger.Ptr(msg.JobID),
		MessageID: logger.Ptr(msg.ID),
		Attempt:   logger.Ptr(msg.Attempt),
		Component: "engine.worker",
	})

	slog.InfoContext(ctx, "processing job", "attempt", msg.Attempt)

	job, err := w.jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "job not found, dropping message")
			return w.consumer.Ack(ctx, msg)
		}
		return fmt.Errorf("loading job: %w", err)
	}

	if job.Status.Terminal() {
		slog.InfoContext(ctx, "job already terminal, skipping", "status", string(job.Status))
		return w.consumer.Ack(ctx, msg)
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusProcessing
	job.StartedAt = &now
	if err := w.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("marking job processing: %w", err)
	}

	w.bus.Emit(ctx, event.New(job.ID, event.TypeJobStarted, "", "job started", nil))

	final, runErr := w.builder.Run(ctx, job)

	done := time.Now().UTC()
	job.CompletedAt = &done

	if runErr != nil {
		// Partial output is discarded on failure; only the error survives.
		job.Status = model.JobStatusFailed
		job.ErrorMsg = logger.Ptr(runErr.Error())
		var nodeErr *graph.NodeError
		if errors.As(runErr, &nodeErr) {
			job.Stage = nodeErr.Node
		}

		w.bus.Emit(ctx, event.New(job.ID, event.TypeJobFailed, job.Stage, runErr.Error(), nil))
	} else {
		job.Status = model.JobStatusCompleted
		job.Content = final.Content
		if final.Completion != nil {
			job.Score = logger.Ptr(final.Completion.Score)
		}

		w.bus.Emit(ctx, event.New(job.ID, event.TypeJobCompleted, "", "job completed", map[string]any{
			"words":       len(strings.Fields(final.Content)),
			"degrades":    len(final.Errors),
			"duration_ms": done.Sub(now).Milliseconds(),
		}))
	}

	if err := w.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("persisting terminal job state: %w", err)
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be redelivered; the terminal-status check makes the
		// redelivery a no-op.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	slog.InfoContext(ctx, "job finished", "status", string(job.Status))
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"job_id", msg.JobID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"job_id", msg.JobID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
