package event

import (
	"time"

	"draftforge.app/engine/common/id"
)

type Type string

const (
	TypeJobStarted       Type = "job_started"
	TypeStageStarted     Type = "stage_started"
	TypeStageCompleted   Type = "stage_completed"
	TypeSectionCompleted Type = "section_completed"
	TypeProgress         Type = "progress"
	TypeError            Type = "error"
	TypeJobCompleted     Type = "job_completed"
	TypeJobFailed        Type = "job_failed"
)

// Event is a single progress notification for a job. Events are immutable
// once emitted; Data holds stage-specific payload fields.
type Event struct {
	ID        int64          `json:"id"`
	JobID     string         `json:"job_id"`
	Type      Type           `json:"type"`
	Stage     string         `json:"stage,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// New builds an event with a fresh ID and timestamp.
func New(jobID string, typ Type, stage, message string, data map[string]any) Event {
	return Event{
		ID:        id.New(),
		JobID:     jobID,
		Type:      typ,
		Stage:     stage,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
