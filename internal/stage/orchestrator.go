package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

const plannerSystemPrompt = `You are the lead editor for a long-form blog post.
Break the topic into a section outline that independent writers can draft in
parallel. Each task gets a clear goal, 3-6 bullet points to cover, and a word
budget. Sections must not overlap in scope; together they must cover the topic
completely. Use the evidence brief when one is provided and keep the requested
tone throughout.`

// OrchestratorStage turns the topic and evidence into a section plan.
type OrchestratorStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewOrchestratorStage(client llm.Client, emitter *event.Emitter) *OrchestratorStage {
	return &OrchestratorStage{client: client, emitter: emitter}
}

var planSchema = llm.GenerateSchema[model.Plan]()

func (st *OrchestratorStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	st.emitter.Emit(ctx, event.TypeStageStarted, Orchestrator, "planning sections", nil)

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s\nTone: %s\nSections: exactly %d\n", s.Topic, s.Tone, s.TargetSections)
	if len(s.TargetKeywords) > 0 {
		fmt.Fprintf(&prompt, "Target keywords: %s\n", strings.Join(s.TargetKeywords, ", "))
	}
	if len(s.Evidence) > 0 {
		prompt.WriteString("\nEvidence brief:\n")
		for _, ev := range s.Evidence {
			fmt.Fprintf(&prompt, "Source: %s (%s)\n%s\n\n", ev.Title, ev.URL, truncate(ev.Snippet, 1200))
		}
	}

	var plan model.Plan
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: plannerSystemPrompt,
		UserPrompt:   prompt.String(),
		SchemaName:   "section_plan",
		Schema:       planSchema,
		MaxTokens:    4096,
		Temperature:  llm.Temp(0.3),
	}, &plan)
	if err != nil {
		return graph.Update{}, fmt.Errorf("planning sections: %w", err)
	}

	// An empty plan is legal: the fan-out spawns nothing and the merger
	// produces a title-only document.
	if len(plan.Tasks) == 0 {
		slog.WarnContext(ctx, "planner produced no tasks", "topic", s.Topic)
	}
	if len(plan.Tasks) > s.TargetSections && s.TargetSections > 0 {
		plan.Tasks = plan.Tasks[:s.TargetSections]
	}
	plan.Normalize()
	if plan.Tone == "" {
		plan.Tone = s.Tone
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, Orchestrator, fmt.Sprintf("planned %d sections", len(plan.Tasks)), map[string]any{
		"blog_title":   plan.BlogTitle,
		"sections":     len(plan.Tasks),
		"target_words": plan.TargetWords(),
	})

	return graph.Update{Plan: &plan}, nil
}
