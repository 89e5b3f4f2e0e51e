package dto

import (
	"time"

	"draftforge.app/engine/internal/model"
)

type SubmitJobRequest struct {
	Topic          string   `json:"topic" binding:"required"`
	Tone           string   `json:"tone,omitempty"`
	TargetSections int      `json:"target_sections,omitempty"`
	TargetKeywords []string `json:"target_keywords,omitempty"`
	Tier           string   `json:"tier,omitempty"`
}

type JobResponse struct {
	ID             string     `json:"id"`
	Topic          string     `json:"topic"`
	Tone           string     `json:"tone"`
	TargetSections int        `json:"target_sections"`
	TargetKeywords []string   `json:"target_keywords,omitempty"`
	Tier           string     `json:"tier"`
	Status         string     `json:"status"`
	Stage          string     `json:"stage,omitempty"`
	Content        string     `json:"content,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	Error          *string    `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func ToJobResponse(job *model.Job) *JobResponse {
	return &JobResponse{
		ID:             job.ID,
		Topic:          job.Topic,
		Tone:           job.Tone,
		TargetSections: job.TargetSections,
		TargetKeywords: job.TargetKeywords,
		Tier:           string(job.Tier),
		Status:         string(job.Status),
		Stage:          job.Stage,
		Content:        job.Content,
		Score:          job.Score,
		Error:          job.ErrorMsg,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
}

// ToJobSummary omits the content body for list endpoints.
func ToJobSummary(job *model.Job) *JobResponse {
	resp := ToJobResponse(job)
	resp.Content = ""
	return resp
}
