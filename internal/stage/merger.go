package stage

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

// MergeStage assembles the final document from section results. Duplicate
// task IDs collapse to the latest result, ordering follows task IDs, and
// arrival order never matters.
type MergeStage struct {
	emitter *event.Emitter
}

func NewMergeStage(emitter *event.Emitter) *MergeStage {
	return &MergeStage{emitter: emitter}
}

func (st *MergeStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	// Zero sections is reachable: an empty plan spawns no writers and the
	// merged document carries only the title heading.
	if len(s.Sections) == 0 {
		slog.WarnContext(ctx, "merging with no sections", "job_id", s.JobID)
	}

	title := ""
	if s.Plan != nil {
		title = s.Plan.BlogTitle
	}
	content := MergeSections(title, s.Sections)

	st.emitter.Emit(ctx, event.TypeStageCompleted, Merge, "document assembled", map[string]any{
		"sections": len(dedupeSections(s.Sections)),
		"words":    wordCount(content),
	})

	return graph.Update{Content: graph.Str(content)}, nil
}

// MergeSections collapses duplicates (last write wins), sorts by task ID
// ascending and joins the sections under the post title.
func MergeSections(title string, sections []model.SectionResult) string {
	ordered := dedupeSections(sections)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].TaskID < ordered[j].TaskID })

	parts := make([]string, 0, len(ordered)+1)
	if title != "" {
		parts = append(parts, "# "+title)
	}
	for _, sec := range ordered {
		parts = append(parts, strings.TrimSpace(sec.Markdown))
	}
	return strings.Join(parts, "\n\n")
}

func dedupeSections(sections []model.SectionResult) []model.SectionResult {
	byID := make(map[int]model.SectionResult, len(sections))
	for _, sec := range sections {
		byID[sec.TaskID] = sec
	}
	out := make([]model.SectionResult, 0, len(byID))
	for _, sec := range byID {
		out = append(out, sec)
	}
	return out
}
