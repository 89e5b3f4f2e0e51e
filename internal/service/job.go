package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/queue"
	"draftforge.app/engine/internal/store"
)

const (
	minTopicRunes = 8
	maxTopicRunes = 300

	minSections     = 1
	maxSections     = 12
	defaultSections = 5

	maxKeywords = 10
)

// ValidationError reports an unacceptable submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmitRequest is the validated input for a new generation job.
type SubmitRequest struct {
	Topic          string
	Tone           string
	TargetSections int
	TargetKeywords []string
	Tier           model.PlanTier
}

type JobService interface {
	Submit(ctx context.Context, req SubmitRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, limit int) ([]model.Job, error)
	Events(ctx context.Context, id string) ([]event.Event, error)
}

type jobService struct {
	jobs     store.JobStore
	producer queue.Producer
	bus      *event.Bus
}

func NewJobService(jobs store.JobStore, producer queue.Producer, bus *event.Bus) JobService {
	return &jobService{
		jobs:     jobs,
		producer: producer,
		bus:      bus,
	}
}

// Submit validates the request, persists the job and enqueues it.
func (s *jobService) Submit(ctx context.Context, req SubmitRequest) (*model.Job, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	job := &model.Job{
		ID:             uuid.NewString(),
		Topic:          req.Topic,
		Tone:           req.Tone,
		TargetSections: req.TargetSections,
		TargetKeywords: req.TargetKeywords,
		Tier:           req.Tier,
		Status:         model.JobStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to create job", "error", err)
		return nil, fmt.Errorf("creating job: %w", err)
	}

	if err := s.producer.Enqueue(ctx, queue.JobMessage{JobID: job.ID}); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue job", "error", err, "job_id", job.ID)
		return nil, fmt.Errorf("enqueueing job: %w", err)
	}

	slog.InfoContext(ctx, "job submitted", "job_id", job.ID, "tier", string(job.Tier))
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id string) (*model.Job, error) {
	return s.jobs.GetByID(ctx, id)
}

func (s *jobService) List(ctx context.Context, limit int) ([]model.Job, error) {
	return s.jobs.List(ctx, limit)
}

// Events returns the retained progress history for a job. The job must
// exist; an unknown id surfaces store.ErrNotFound.
func (s *jobService) Events(ctx context.Context, id string) ([]event.Event, error) {
	if _, err := s.jobs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.bus.History(id), nil
}

func validate(req *SubmitRequest) error {
	req.Topic = strings.TrimSpace(req.Topic)
	switch n := utf8.RuneCountInString(req.Topic); {
	case n < minTopicRunes:
		return &ValidationError{Field: "topic", Message: fmt.Sprintf("must be at least %d characters", minTopicRunes)}
	case n > maxTopicRunes:
		return &ValidationError{Field: "topic", Message: fmt.Sprintf("must be at most %d characters", maxTopicRunes)}
	}

	if req.Tone == "" {
		req.Tone = "professional"
	}

	if req.TargetSections == 0 {
		req.TargetSections = defaultSections
	}
	if req.TargetSections < minSections || req.TargetSections > maxSections {
		return &ValidationError{Field: "target_sections", Message: fmt.Sprintf("must be between %d and %d", minSections, maxSections)}
	}

	if len(req.TargetKeywords) > maxKeywords {
		return &ValidationError{Field: "target_keywords", Message: fmt.Sprintf("at most %d keywords", maxKeywords)}
	}
	for i, kw := range req.TargetKeywords {
		req.TargetKeywords[i] = strings.TrimSpace(kw)
		if req.TargetKeywords[i] == "" {
			return &ValidationError{Field: "target_keywords", Message: "keywords must not be blank"}
		}
	}

	switch req.Tier {
	case "":
		req.Tier = model.PlanTierBasic
	case model.PlanTierBasic, model.PlanTierPremium:
	default:
		return &ValidationError{Field: "tier", Message: "must be basic or premium"}
	}

	return nil
}
