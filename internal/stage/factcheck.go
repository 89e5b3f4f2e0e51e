package stage

import (
	"context"
	"fmt"
	"strings"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

const maxAuditRunes = 24000

const factCheckSystemPrompt = `You are a rigorous fact-checking editor. Audit the draft against the
evidence brief. Flag claims that lack a supporting source, look hallucinated,
or contradict the evidence. Score overall quality 0-10 and give a verdict:
READY when the draft can ship, NEEDS_REVISION otherwise. Be specific in
recommendations; do not rewrite the draft.`

var factCheckSchema = llm.GenerateSchema[model.FactCheckReport]()

// QAStage runs a model-driven fact-check over the merged document.
type QAStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewQAStage(client llm.Client, emitter *event.Emitter) *QAStage {
	return &QAStage{client: client, emitter: emitter}
}

func (st *QAStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	st.emitter.Emit(ctx, event.TypeStageStarted, QA, "fact-checking draft", nil)

	var prompt strings.Builder
	prompt.WriteString("Draft:\n")
	prompt.WriteString(truncate(s.Content, maxAuditRunes))
	if len(s.Evidence) > 0 {
		prompt.WriteString("\n\nEvidence brief:\n")
		for _, ev := range s.Evidence {
			fmt.Fprintf(&prompt, "Source: %s (%s)\n%s\n\n", ev.Title, ev.URL, truncate(ev.Snippet, 600))
		}
	} else {
		prompt.WriteString("\n\nNo evidence brief was collected; flag only internal contradictions and implausible claims.")
	}

	var report model.FactCheckReport
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: factCheckSystemPrompt,
		UserPrompt:   prompt.String(),
		SchemaName:   "fact_check_report",
		Schema:       factCheckSchema,
		MaxTokens:    4096,
		Temperature:  llm.Temp(0),
	}, &report)
	if err != nil {
		return graph.Update{}, fmt.Errorf("fact-checking draft: %w", err)
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, QA, fmt.Sprintf("quality score %.1f (%s)", report.Score, report.Verdict), map[string]any{
		"score":   report.Score,
		"verdict": report.Verdict,
		"issues":  len(report.Issues),
	})

	return graph.Update{FactCheck: &report}, nil
}
