package model

import "time"

// JobStatus represents the lifecycle state of a generation job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// PlanTier selects how much of the pipeline tail a job runs.
// Basic stops after quality control; premium adds images and campaign assets.
type PlanTier string

const (
	PlanTierBasic   PlanTier = "basic"
	PlanTierPremium PlanTier = "premium"
)

// Job is one end-to-end pipeline execution for a single topic request.
// A job is mutated only by the workflow run that owns it; exactly one run
// ever owns a job.
type Job struct {
	ID             string     `json:"id"`
	Topic          string     `json:"topic"`
	Tone           string     `json:"tone"`
	TargetSections int        `json:"target_sections"`
	TargetKeywords []string   `json:"target_keywords"`
	Tier           PlanTier   `json:"tier"`
	Status         JobStatus  `json:"status"`
	Stage          string     `json:"stage,omitempty"`
	Content        string     `json:"content,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	ErrorMsg       *string    `json:"error_msg,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}
