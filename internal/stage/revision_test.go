package stage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

func flaggedReport() *model.FactCheckReport {
	return &model.FactCheckReport{
		Score:   5,
		Verdict: "NEEDS_REVISION",
		Issues: []model.FactCheckIssue{{
			Claim:          "90% of teams ship weekly",
			IssueType:      "citation_missing",
			Severity:       "high",
			Recommendation: "cite a source or drop the statistic",
		}},
	}
}

func TestRevisionSkipsWithoutFlaggedIssues(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		t.Fatal("revision must not call the model without flagged issues")
		return nil
	}}
	st := NewRevisionStage(client, testEmitter())

	tests := []struct {
		name  string
		state graph.State
	}{
		{"no report", graph.State{Content: "# T\n\nbody."}},
		{"clean report", graph.State{
			Content:   "# T\n\nbody.",
			FactCheck: &model.FactCheckReport{Score: 9, Verdict: "READY"},
		}},
		{"empty draft", graph.State{FactCheck: flaggedReport()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := st.Run(context.Background(), tt.state)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if update.Content != nil {
				t.Fatalf("content rewritten on skip: %q", *update.Content)
			}
		})
	}
}

func TestRevisionRewritesFlaggedDraft(t *testing.T) {
	var prompt string
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		prompt = req.UserPrompt
		fill(t, result, revisedDraft{Markdown: "# T\n\n" +
			strings.TrimSpace(strings.Repeat("revised ", 20)) + "."})
		return nil
	}}
	st := NewRevisionStage(client, testEmitter())

	update, err := st.Run(context.Background(), graph.State{
		Content:   "# T\n\n" + strings.TrimSpace(strings.Repeat("original ", 20)) + ".",
		FactCheck: flaggedReport(),
		Evidence:  []model.EvidenceItem{{Title: "Survey", URL: "https://ev.example", Snippet: "actual numbers"}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if update.Content == nil || !strings.Contains(*update.Content, "revised") {
		t.Fatalf("rewrite not applied: %+v", update)
	}
	if !strings.Contains(prompt, "citation_missing") || !strings.Contains(prompt, "90% of teams ship weekly") {
		t.Fatalf("flagged issue missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "https://ev.example") {
		t.Fatalf("evidence brief missing from prompt:\n%s", prompt)
	}
}

func TestRevisionRejectsTruncatedRewrite(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		fill(t, result, revisedDraft{Markdown: "too short"})
		return nil
	}}
	st := NewRevisionStage(client, testEmitter())

	update, err := st.Run(context.Background(), graph.State{
		Content:   "# T\n\n" + strings.TrimSpace(strings.Repeat("word ", 100)) + ".",
		FactCheck: flaggedReport(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if update.Content != nil {
		t.Fatalf("truncated rewrite accepted: %q", *update.Content)
	}
}

func TestRevisionModelErrorSurfaces(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		return errors.New("model overloaded")
	}}
	st := NewRevisionStage(client, testEmitter())

	_, err := st.Run(context.Background(), graph.State{
		Content:   "# T\n\nbody.",
		FactCheck: flaggedReport(),
	})
	if err == nil {
		t.Fatal("expected error from failed revision call")
	}
}
