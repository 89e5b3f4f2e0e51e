package stage

import (
	"strings"
	"testing"

	"draftforge.app/engine/internal/model"
)

func TestAnalyzeKeywordsDensity(t *testing.T) {
	// Exactly 100 words, with the keyword appearing twice: density 2.0%.
	words := make([]string, 0, 100)
	words = append(words, "golang")
	for len(words) < 99 {
		words = append(words, "filler")
	}
	words = append(words, "golang")
	content := strings.Join(words, " ")

	report := AnalyzeKeywords(content, []string{"golang"})
	if len(report.Metrics) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(report.Metrics))
	}

	m := report.Metrics[0]
	if m.Count != 2 {
		t.Fatalf("expected count 2, got %d", m.Count)
	}
	if m.Density != 2.0 {
		t.Fatalf("expected density 2.0, got %.2f", m.Density)
	}
	if m.Status != model.KeywordOptimal {
		t.Fatalf("expected optimal, got %s", m.Status)
	}
}

func TestAnalyzeKeywordsStatusBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		status model.KeywordStatus
	}{
		{"low below 1%", 0, model.KeywordLow},
		{"optimal at 1%", 1, model.KeywordOptimal},
		{"optimal at 2.5%", 2, model.KeywordOptimal}, // 2/80 = 2.5%
		{"high above 2.5%", 3, model.KeywordHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words := make([]string, 0, 80)
			for i := 0; i < tt.count; i++ {
				words = append(words, "kiwi")
			}
			for len(words) < 80 {
				words = append(words, "pad")
			}
			report := AnalyzeKeywords(strings.Join(words, " "), []string{"kiwi"})
			if got := report.Metrics[0].Status; got != tt.status {
				t.Fatalf("count %d: expected %s, got %s (density %.2f)",
					tt.count, tt.status, got, report.Metrics[0].Density)
			}
		})
	}
}

func TestAnalyzeKeywordsPlacement(t *testing.T) {
	content := "# Brewing Great Coffee\n\nCoffee lovers know freshness matters.\n\n" +
		strings.Repeat("pad ", 400) +
		"\n\n## Why coffee grind size matters\n\nmore body."

	report := AnalyzeKeywords(content, []string{"coffee"})
	m := report.Metrics[0]

	if !m.InTitle {
		t.Fatal("keyword in first 200 chars not detected as title placement")
	}
	if !m.InFirstParagraph {
		t.Fatal("keyword in first 500 chars not detected")
	}
	if !m.InHeadings {
		t.Fatal("keyword in section heading not detected")
	}
}

func TestAnalyzeKeywordsAbsentFromOpening(t *testing.T) {
	content := strings.Repeat("pad ", 300) + "kubernetes at the very end"
	report := AnalyzeKeywords(content, []string{"kubernetes"})
	m := report.Metrics[0]

	if m.InTitle || m.InFirstParagraph {
		t.Fatalf("placement false positives: %+v", m)
	}
	hasSuggestion := false
	for _, s := range report.Suggestions {
		if strings.Contains(s, "kubernetes") {
			hasSuggestion = true
		}
	}
	if !hasSuggestion {
		t.Fatal("expected a suggestion for poorly placed keyword")
	}
}

func TestAnalyzeKeywordsEmptyInputs(t *testing.T) {
	if r := AnalyzeKeywords("some content", nil); len(r.Metrics) != 0 {
		t.Fatalf("expected no metrics, got %+v", r.Metrics)
	}
	r := AnalyzeKeywords("", []string{"x"})
	if len(r.Metrics) != 1 || r.Metrics[0].Density != 0 {
		t.Fatalf("expected zero density on empty content, got %+v", r.Metrics)
	}
}

func TestAnalyzeKeywordsCaseInsensitive(t *testing.T) {
	report := AnalyzeKeywords("GraphQL and graphql and GRAPHQL", []string{"GraphQL"})
	if report.Metrics[0].Count != 3 {
		t.Fatalf("expected case-insensitive count 3, got %d", report.Metrics[0].Count)
	}
}
