package stage

import (
	"context"
	"errors"
	"testing"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

func TestRouterStageMapsModeToRecency(t *testing.T) {
	tests := []struct {
		mode string
		days int
	}{
		{"open_book", 7},
		{"hybrid", 45},
		{"closed_book", 3650},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			client := &fakeLLM{fn: func(req llm.Request, result any) error {
				fill(t, result, routerDecision{
					NeedsResearch: true,
					Mode:          tt.mode,
					Queries:       []string{"q"},
					Reasoning:     "because",
				})
				return nil
			}}

			update, err := NewRouterStage(client, testEmitter()).Run(context.Background(), graph.State{Topic: "x"})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if *update.RecencyDays != tt.days {
				t.Fatalf("mode %s: expected %d days, got %d", tt.mode, tt.days, *update.RecencyDays)
			}
			if *update.Mode != model.ResearchMode(tt.mode) {
				t.Fatalf("mode not forwarded: %s", *update.Mode)
			}
		})
	}
}

func TestRouterStageCapsQueries(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		fill(t, result, routerDecision{
			NeedsResearch: true,
			Mode:          "hybrid",
			Queries:       []string{"1", "2", "3", "4", "5", "6", "7"},
			Reasoning:     "r",
		})
		return nil
	}}

	update, err := NewRouterStage(client, testEmitter()).Run(context.Background(), graph.State{Topic: "x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(update.Queries) != 5 {
		t.Fatalf("expected 5 queries, got %d", len(update.Queries))
	}
}

func TestRouterStageClosedBookDropsQueries(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		fill(t, result, routerDecision{
			NeedsResearch: false,
			Mode:          "closed_book",
			Queries:       []string{"stale query"},
			Reasoning:     "evergreen",
		})
		return nil
	}}

	update, err := NewRouterStage(client, testEmitter()).Run(context.Background(), graph.State{Topic: "x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *update.NeedsResearch {
		t.Fatal("needs_research not forwarded")
	}
	if len(update.Queries) != 0 {
		t.Fatalf("expected no queries when research not needed, got %v", update.Queries)
	}
}

func TestRouterStagePropagatesModelFailure(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		return errors.New("bad schema")
	}}
	if _, err := NewRouterStage(client, testEmitter()).Run(context.Background(), graph.State{Topic: "x"}); err == nil {
		t.Fatal("expected routing error to surface")
	}
}
