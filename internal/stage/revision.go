package stage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
)

const maxRevisionEvidence = 10

const revisionSystemPrompt = `You are a senior editor revising a blog post after a fact-check audit.
Rewrite the draft to resolve every flagged issue: remove or rephrase
unsupported claims, correct contradictions, and ground statements in the
evidence brief. Keep the structure, headings, tone and length of the
original; change only what the audit requires. Return the complete revised
post in markdown.`

type revisedDraft struct {
	Markdown string `json:"markdown" jsonschema:"required,description=The complete revised post in markdown"`
}

var revisionSchema = llm.GenerateSchema[revisedDraft]()

// RevisionStage rewrites the draft once, using the flagged fact-check
// issues as edit instructions. It runs only when the audit found
// something; a clean report or a missing one passes the draft through
// untouched. A revision that loses more than 30% of the original words is
// rejected as a truncation.
type RevisionStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewRevisionStage(client llm.Client, emitter *event.Emitter) *RevisionStage {
	return &RevisionStage{client: client, emitter: emitter}
}

func (st *RevisionStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	if s.FactCheck == nil || len(s.FactCheck.Issues) == 0 || s.Content == "" {
		return graph.Update{}, nil
	}

	st.emitter.Emit(ctx, event.TypeStageStarted, Revision, fmt.Sprintf("revising %d flagged issues", len(s.FactCheck.Issues)), nil)

	var draft revisedDraft
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: revisionSystemPrompt,
		UserPrompt:   st.revisionPrompt(s),
		SchemaName:   "revised_draft",
		Schema:       revisionSchema,
		MaxTokens:    16384,
		Temperature:  llm.Temp(0.3),
	}, &draft)
	if err != nil {
		return graph.Update{}, fmt.Errorf("revising draft: %w", err)
	}

	revised := strings.TrimSpace(draft.Markdown)
	originalWords := wordCount(s.Content)
	revisedWords := wordCount(revised)

	if revisedWords*10 < originalWords*7 {
		slog.WarnContext(ctx, "revision rejected as truncated",
			"original_words", originalWords, "revised_words", revisedWords)
		st.emitter.Emit(ctx, event.TypeStageCompleted, Revision, "revision rejected, keeping original draft", map[string]any{
			"original_words": originalWords,
			"revised_words":  revisedWords,
		})
		return graph.Update{}, nil
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, Revision, fmt.Sprintf("resolved %d flagged issues", len(s.FactCheck.Issues)), map[string]any{
		"issues": len(s.FactCheck.Issues),
		"words":  revisedWords,
	})

	return graph.Update{Content: graph.Str(revised)}, nil
}

func (st *RevisionStage) revisionPrompt(s graph.State) string {
	var b strings.Builder
	b.WriteString("Draft:\n")
	b.WriteString(truncate(s.Content, maxAuditRunes))

	b.WriteString("\n\nAudit findings:\n")
	for i, issue := range s.FactCheck.Issues {
		fmt.Fprintf(&b, "%d. [%s] %q\n   Fix: %s\n", i+1, issue.IssueType, issue.Claim, issue.Recommendation)
	}

	evidence := s.Evidence
	if len(evidence) > maxRevisionEvidence {
		evidence = evidence[:maxRevisionEvidence]
	}
	if len(evidence) > 0 {
		b.WriteString("\nEvidence brief:\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "Source: %s (%s)\n%s\n\n", ev.Title, ev.URL, truncate(ev.Snippet, 400))
		}
	}
	return b.String()
}
