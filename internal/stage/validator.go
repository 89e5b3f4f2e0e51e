package stage

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

var brokenImageRe = regexp.MustCompile(`\[\[IMAGE_\d+\]\]`)

// ValidateStage audits the merged document for structural completeness
// and repairs what it can: truncated paragraphs get their period back and
// unresolved image placeholders are stripped. The score is advisory; a
// poor score never stops the run.
type ValidateStage struct {
	emitter *event.Emitter
}

func NewValidateStage(emitter *event.Emitter) *ValidateStage {
	return &ValidateStage{emitter: emitter}
}

func (st *ValidateStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	expectedSections := s.TargetSections
	expectedWords := 0
	if s.Plan != nil {
		expectedSections = len(s.Plan.Tasks)
		expectedWords = s.Plan.TargetWords()
	}

	st.emitter.Emit(ctx, event.TypeStageStarted, Validate, "auditing merged document", nil)

	corrected, report := ValidateDocument(s.Content, expectedSections, expectedWords)

	for _, fix := range report.Fixes {
		slog.InfoContext(ctx, "validator applied fix", "fix", fix)
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, Validate, fmt.Sprintf("completion score %.1f", report.Score), map[string]any{
		"score":      report.Score,
		"sections":   report.FoundSections,
		"word_ratio": report.WordRatio,
		"issues":     len(report.Issues),
		"fixes":      len(report.Fixes),
	})

	update := graph.Update{Completion: &report}
	if corrected != s.Content {
		update.Content = graph.Str(corrected)
	}
	return update, nil
}

// ValidateDocument checks section count, paragraph integrity, leftover
// image placeholders and the word budget, and returns the corrected
// document alongside the report. Corrections are limited to appending
// terminal periods and stripping placeholder tokens; report.Fixes lists
// exactly what was changed, so a second pass over the corrected output
// applies nothing new.
func ValidateDocument(content string, expectedSections, expectedWords int) (string, model.CompletionReport) {
	report := model.CompletionReport{
		ExpectedSections: expectedSections,
		ExpectedWords:    expectedWords,
	}

	if placeholders := brokenImageRe.FindAllString(content, -1); len(placeholders) > 0 {
		report.Issues = append(report.Issues, model.CompletionIssue{
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("%d unresolved image placeholders", len(placeholders)),
		})
		report.Fixes = append(report.Fixes, fmt.Sprintf("stripped %d image placeholders", len(placeholders)))
		content = stripPlaceholders(content)
	}

	content = terminateParagraphs(content, &report)

	report.TotalWords = wordCount(content)
	report.FoundSections = countSectionHeadings(content)

	if report.FoundSections < expectedSections {
		missing := expectedSections - report.FoundSections
		report.Issues = append(report.Issues, model.CompletionIssue{
			Severity: model.SeverityHigh,
			Message:  fmt.Sprintf("%d of %d sections missing", missing, expectedSections),
		})
	}

	if expectedWords > 0 {
		report.WordRatio = float64(report.TotalWords) / float64(expectedWords)
		if report.WordRatio < 0.8 {
			report.Issues = append(report.Issues, model.CompletionIssue{
				Severity: model.SeverityHigh,
				Message:  fmt.Sprintf("document is %.0f%% of the word target", report.WordRatio*100),
			})
		}
	} else {
		report.WordRatio = 1
	}

	report.Score = completionScore(report)
	return content, report
}

// countSectionHeadings counts level 2-4 headings, the levels section
// writers are allowed to emit. The document title (level 1) is not a
// section.
func countSectionHeadings(content string) int {
	source := []byte(content)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	found := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok && heading.Level >= 2 && heading.Level <= 4 {
			found++
		}
		return ast.WalkContinue, nil
	})
	return found
}

// terminateParagraphs appends a period to any non-heading, non-image
// block longer than 50 runes that does not end in terminal punctuation,
// recording each repair on the report.
func terminateParagraphs(content string, report *model.CompletionReport) string {
	blocks := strings.Split(content, "\n\n")
	changed := false

	for i, block := range blocks {
		p := strings.TrimSpace(block)
		if p == "" || strings.HasPrefix(p, "#") || strings.HasPrefix(p, "![") {
			continue
		}
		if utf8.RuneCountInString(p) <= 50 {
			continue
		}
		last, _ := utf8.DecodeLastRuneInString(p)
		if strings.ContainsRune(`.!?")`, last) {
			continue
		}
		report.Issues = append(report.Issues, model.CompletionIssue{
			Severity: model.SeverityMedium,
			Message:  fmt.Sprintf("paragraph appears truncated: %q", truncate(p, 60)),
		})
		report.Fixes = append(report.Fixes, fmt.Sprintf("appended terminal period to %q", truncate(p, 40)))
		blocks[i] = p + "."
		changed = true
	}

	if !changed {
		return content
	}
	return strings.Join(blocks, "\n\n")
}

// stripPlaceholders removes the tokens and collapses the blank blocks
// they leave behind.
func stripPlaceholders(content string) string {
	content = brokenImageRe.ReplaceAllString(content, "")

	blocks := strings.Split(content, "\n\n")
	kept := blocks[:0]
	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		kept = append(kept, block)
	}
	return strings.Join(kept, "\n\n")
}

// completionScore starts at 10 and deducts for missing sections (2 per
// section, at most 4) and for a short document (3 below 80% of target,
// 1 below 90%). Never negative.
func completionScore(r model.CompletionReport) float64 {
	score := 10.0

	if r.FoundSections < r.ExpectedSections {
		penalty := float64(2 * (r.ExpectedSections - r.FoundSections))
		if penalty > 4 {
			penalty = 4
		}
		score -= penalty
	}

	switch {
	case r.WordRatio < 0.8:
		score -= 3
	case r.WordRatio < 0.9:
		score -= 1
	}

	if score < 0 {
		score = 0
	}
	return score
}
