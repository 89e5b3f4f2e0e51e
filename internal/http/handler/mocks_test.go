package handler_test

import (
	"context"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/model"
	"draftforge.app/engine/internal/service"
)

type mockJobService struct {
	submitFn func(ctx context.Context, req service.SubmitRequest) (*model.Job, error)
	getFn    func(ctx context.Context, id string) (*model.Job, error)
	listFn   func(ctx context.Context, limit int) ([]model.Job, error)
	eventsFn func(ctx context.Context, id string) ([]event.Event, error)
}

func (m *mockJobService) Submit(ctx context.Context, req service.SubmitRequest) (*model.Job, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return nil, nil
}

func (m *mockJobService) Get(ctx context.Context, id string) (*model.Job, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockJobService) List(ctx context.Context, limit int) ([]model.Job, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockJobService) Events(ctx context.Context, id string) ([]event.Event, error) {
	if m.eventsFn != nil {
		return m.eventsFn(ctx, id)
	}
	return nil, nil
}
