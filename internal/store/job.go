package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"draftforge.app/engine/core/db"
	"draftforge.app/engine/internal/model"
)

type jobStore struct {
	db *db.DB
}

// NewJobStore returns a Postgres-backed JobStore.
func NewJobStore(database *db.DB) JobStore {
	return &jobStore{db: database}
}

const jobColumns = `id, topic, tone, target_sections, target_keywords, tier,
	status, stage, content, score, error_msg, created_at, started_at, completed_at`

func (s *jobStore) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *jobStore) Create(ctx context.Context, job *model.Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Pool().Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		job.ID, job.Topic, job.Tone, job.TargetSections, job.TargetKeywords, job.Tier,
		job.Status, job.Stage, job.Content, job.Score, job.ErrorMsg,
		job.CreatedAt, job.StartedAt, job.CompletedAt)
	return err
}

func (s *jobStore) Update(ctx context.Context, job *model.Job) error {
	tag, err := s.db.Pool().Exec(ctx,
		`UPDATE jobs SET status = $2, stage = $3, content = $4, score = $5,
			error_msg = $6, started_at = $7, completed_at = $8
		 WHERE id = $1`,
		job.ID, job.Status, job.Stage, job.Content, job.Score,
		job.ErrorMsg, job.StartedAt, job.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *jobStore) List(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Pool().Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var job model.Job
	err := row.Scan(
		&job.ID, &job.Topic, &job.Tone, &job.TargetSections, &job.TargetKeywords,
		&job.Tier, &job.Status, &job.Stage, &job.Content, &job.Score,
		&job.ErrorMsg, &job.CreatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
