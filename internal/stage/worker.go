package stage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"draftforge.app/engine/common/llm"
	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

const maxEvidencePerSection = 15

const writerSystemPrompt = `You are a section writer on a blog team. Write ONE section of a larger
post. Follow the section goal and bullet points exactly, stay inside your
word budget, and keep the requested tone. Write markdown body text only:
no top-level title, no section heading (it is added for you), no preamble.
Ground factual claims in the evidence brief when one is provided.`

type sectionDraft struct {
	Markdown string `json:"markdown" jsonschema:"required,description=The section body in markdown without a heading"`
}

var sectionSchema = llm.GenerateSchema[sectionDraft]()

// leadingHeading matches a heading the model emitted despite instructions.
var leadingHeading = regexp.MustCompile(`^#{1,4}\s+.*\n+`)

// WriterStage drafts sections. Units spawns one unit per planned task;
// each unit produces one SectionResult. A failed unit still contributes a
// placeholder section so the document keeps its shape.
type WriterStage struct {
	client  llm.Client
	emitter *event.Emitter
}

func NewWriterStage(client llm.Client, emitter *event.Emitter) *WriterStage {
	return &WriterStage{client: client, emitter: emitter}
}

// Units derives the fan-out unit functions from the plan.
func (st *WriterStage) Units(s graph.State) []graph.NodeFunc {
	if s.Plan == nil {
		return nil
	}
	units := make([]graph.NodeFunc, len(s.Plan.Tasks))
	for i, task := range s.Plan.Tasks {
		task := task
		units[i] = func(ctx context.Context, s graph.State) (graph.Update, error) {
			return st.writeSection(ctx, s, task)
		}
	}
	return units
}

func (st *WriterStage) writeSection(ctx context.Context, s graph.State, task model.Task) (graph.Update, error) {
	var draft sectionDraft
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: writerSystemPrompt,
		UserPrompt:   st.sectionPrompt(s, task),
		SchemaName:   "section_draft",
		Schema:       sectionSchema,
		MaxTokens:    4096,
		Temperature:  llm.Temp(0.7),
	}, &draft)
	if err != nil {
		placeholder := fmt.Sprintf("## %s\n\n[Error generating content: %s]", task.Title, err)
		st.emitter.Emit(ctx, event.TypeError, Worker, fmt.Sprintf("section %d failed", task.ID), map[string]any{
			"task_id": task.ID,
			"title":   task.Title,
		})
		return graph.Update{
			Sections: []model.SectionResult{{TaskID: task.ID, Markdown: placeholder}},
		}, fmt.Errorf("writing section %d (%s): %w", task.ID, task.Title, err)
	}

	markdown := finishSection(task.Title, draft.Markdown)

	words := wordCount(markdown)
	if task.TargetWords > 0 && words < task.TargetWords*7/10 {
		slog.WarnContext(ctx, "section under word budget",
			"task_id", task.ID, "words", words, "target", task.TargetWords)
	}

	st.emitter.Emit(ctx, event.TypeSectionCompleted, Worker, fmt.Sprintf("section %d: %s", task.ID, task.Title), map[string]any{
		"task_id": task.ID,
		"words":   words,
	})

	return graph.Update{
		Sections: []model.SectionResult{{TaskID: task.ID, Markdown: markdown}},
	}, nil
}

func (st *WriterStage) sectionPrompt(s graph.State, task model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post: %s\nTone: %s\n\nSection title: %s\nGoal: %s\nWord budget: %d\n",
		s.Plan.BlogTitle, s.Plan.Tone, task.Title, task.Goal, task.TargetWords)
	for _, bullet := range task.Bullets {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "\nWeave in naturally: %s\n", strings.Join(task.Tags, ", "))
	}

	evidence := s.Evidence
	if len(evidence) > maxEvidencePerSection {
		evidence = evidence[:maxEvidencePerSection]
	}
	if len(evidence) > 0 {
		b.WriteString("\nEvidence brief:\n")
		for _, ev := range evidence {
			fmt.Fprintf(&b, "Source: %s (%s)\n%s\n\n", ev.Title, ev.URL, truncate(ev.Snippet, 800))
		}
	}
	return b.String()
}

// finishSection normalizes a drafted body: drops a heading the model added
// anyway, prepends the canonical section heading, and closes a dangling
// final sentence.
func finishSection(title, body string) string {
	body = strings.TrimSpace(body)
	body = leadingHeading.ReplaceAllString(body, "")
	body = strings.TrimSpace(body)

	if body != "" {
		last, _ := utf8.DecodeLastRuneInString(body)
		if !strings.ContainsRune(`.!?")`, last) {
			body += "."
		}
	}
	return fmt.Sprintf("## %s\n\n%s", title, body)
}
