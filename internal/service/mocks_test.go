package service_test

import (
	"context"

	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/queue"
)

type mockJobStore struct {
	createFn  func(ctx context.Context, job *model.Job) error
	getByIDFn func(ctx context.Context, id string) (*model.Job, error)
	updateFn  func(ctx context.Context, job *model.Job) error
	listFn    func(ctx context.Context, limit int) ([]model.Job, error)
}

func (m *mockJobStore) Create(ctx context.Context, job *model.Job) error {
	if m.createFn != nil {
		return m.createFn(ctx, job)
	}
	return nil
}

func (m *mockJobStore) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &model.Job{ID: id}, nil
}

func (m *mockJobStore) Update(ctx context.Context, job *model.Job) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, job)
	}
	return nil
}

func (m *mockJobStore) List(ctx context.Context, limit int) ([]model.Job, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

type mockProducer struct {
	enqueueFn func(ctx context.Context, msg queue.JobMessage) error
}

func (m *mockProducer) Enqueue(ctx context.Context, msg queue.JobMessage) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, msg)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }
