package store

import (
	"context"
	"errors"

	"draftforge.app/engine/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// JobStore defines the contract for job data access
type JobStore interface {
	GetByID(ctx context.Context, id string) (*model.Job, error)
	Create(ctx context.Context, job *model.Job) error
	Update(ctx context.Context, job *model.Job) error
	List(ctx context.Context, limit int) ([]model.Job, error)
}
