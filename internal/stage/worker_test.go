package stage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

func TestFinishSection(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			"plain body",
			"The body text.",
			"## Intro\n\nThe body text.",
		},
		{
			"model repeated the heading",
			"### Intro\n\nThe body text.",
			"## Intro\n\nThe body text.",
		},
		{
			"dangling sentence gets closed",
			"The body text that just stops",
			"## Intro\n\nThe body text that just stops.",
		},
		{
			"quote ending kept",
			`He said "done."`,
			"## Intro\n\n" + `He said "done."`,
		},
		{
			"question ending kept",
			"Is this enough?",
			"## Intro\n\nIs this enough?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := finishSection("Intro", tt.body); got != tt.want {
				t.Fatalf("got:\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func planOf(n int) *model.Plan {
	p := &model.Plan{BlogTitle: "The Post", Tone: "friendly"}
	for i := 0; i < n; i++ {
		p.Tasks = append(p.Tasks, model.Task{
			ID:          i,
			Title:       fmt.Sprintf("Part %d", i),
			Goal:        "cover part",
			Bullets:     []string{"a", "b", "c"},
			TargetWords: 100,
		})
	}
	return p
}

func TestWriterUnitsOnePerTask(t *testing.T) {
	st := NewWriterStage(&fakeLLM{}, testEmitter())
	units := st.Units(graph.State{Plan: planOf(4)})
	if len(units) != 4 {
		t.Fatalf("expected 4 units, got %d", len(units))
	}
	if units := st.Units(graph.State{}); units != nil {
		t.Fatalf("expected no units without a plan, got %d", len(units))
	}
}

func TestWriterFailurePlaceholderKeepsDocumentShape(t *testing.T) {
	client := &fakeLLM{fn: func(req llm.Request, result any) error {
		if strings.Contains(req.UserPrompt, "Part 2") {
			return errors.New("model overloaded")
		}
		*(result.(*sectionDraft)) = sectionDraft{Markdown: "Section body text."}
		return nil
	}}

	st := NewWriterStage(client, testEmitter())
	state := graph.State{Plan: planOf(5)}

	e := graph.New(3)
	if err := e.AddNode("plan", func(ctx context.Context, s graph.State) (graph.Update, error) {
		return graph.Update{}, nil
	}, graph.Fatal); err != nil {
		t.Fatal(err)
	}
	if err := e.AddNode("merge", NewMergeStage(testEmitter()).Run, graph.Fatal); err != nil {
		t.Fatal(err)
	}
	if err := e.AddEdge(graph.Start, "plan"); err != nil {
		t.Fatal(err)
	}
	if err := e.AddFanOut("plan", "merge", st.Units); err != nil {
		t.Fatal(err)
	}
	if err := e.AddEdge("merge", graph.End); err != nil {
		t.Fatal(err)
	}

	final, err := e.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("a single section failure must not fail the run: %v", err)
	}

	if len(final.Sections) != 5 {
		t.Fatalf("expected 5 sections including placeholder, got %d", len(final.Sections))
	}
	if !strings.Contains(final.Content, "[Error generating content: ") {
		t.Fatalf("placeholder missing from merged document:\n%s", final.Content)
	}
	if strings.Count(final.Content, "## Part") != 5 {
		t.Fatalf("document lost its shape:\n%s", final.Content)
	}
	if len(final.Errors) != 1 {
		t.Fatalf("expected 1 recorded degrade, got %v", final.Errors)
	}
	// Placeholder section sits in its planned position.
	if !strings.Contains(final.Content, "## Part 2\n\n[Error generating content: ") {
		t.Fatalf("placeholder not under its own heading:\n%s", final.Content)
	}
}
