package stage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/graph"
	"draftforge.app/engine/internal/model"
)

var headingLineRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)

// KeywordsStage analyzes target keyword usage in the merged document.
// Analysis only; the content is never rewritten.
type KeywordsStage struct {
	emitter *event.Emitter
}

func NewKeywordsStage(emitter *event.Emitter) *KeywordsStage {
	return &KeywordsStage{emitter: emitter}
}

func (st *KeywordsStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	report := AnalyzeKeywords(s.Content, s.TargetKeywords)

	st.emitter.Emit(ctx, event.TypeStageCompleted, Keywords, fmt.Sprintf("analyzed %d keywords", len(report.Metrics)), map[string]any{
		"keywords":    len(report.Metrics),
		"suggestions": len(report.Suggestions),
	})

	return graph.Update{Keywords: &report}, nil
}

// AnalyzeKeywords measures density and placement for each target keyword.
// Density is occurrences per hundred words; 1-2.5% reads as optimal.
func AnalyzeKeywords(content string, keywords []string) model.KeywordReport {
	report := model.KeywordReport{}
	if len(keywords) == 0 {
		return report
	}

	lower := strings.ToLower(content)
	totalWords := wordCount(content)

	title := strings.ToLower(truncate(content, 200))
	firstParagraph := strings.ToLower(truncate(content, 500))

	var headings []string
	for _, m := range headingLineRe.FindAllStringSubmatch(content, -1) {
		headings = append(headings, strings.ToLower(m[1]))
	}

	for _, kw := range keywords {
		needle := strings.ToLower(strings.TrimSpace(kw))
		if needle == "" {
			continue
		}

		count := strings.Count(lower, needle)
		density := 0.0
		if totalWords > 0 {
			density = float64(count) / float64(totalWords) * 100
		}

		inHeadings := false
		for _, h := range headings {
			if strings.Contains(h, needle) {
				inHeadings = true
				break
			}
		}

		m := model.KeywordMetrics{
			Keyword:          kw,
			Count:            count,
			Density:          density,
			InTitle:          strings.Contains(title, needle),
			InFirstParagraph: strings.Contains(firstParagraph, needle),
			InHeadings:       inHeadings,
			Status:           keywordStatus(density),
		}
		report.Metrics = append(report.Metrics, m)

		switch m.Status {
		case model.KeywordLow:
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("increase usage of %q (%.1f%%, aim for 1-2.5%%)", kw, density))
		case model.KeywordHigh:
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("reduce usage of %q (%.1f%%, reads as stuffing)", kw, density))
		}
		if !m.InTitle {
			report.Suggestions = append(report.Suggestions,
				fmt.Sprintf("consider using %q near the title", kw))
		}
	}

	return report
}

func keywordStatus(density float64) model.KeywordStatus {
	switch {
	case density < 1:
		return model.KeywordLow
	case density > 2.5:
		return model.KeywordHigh
	default:
		return model.KeywordOptimal
	}
}
