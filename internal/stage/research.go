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
	"draftforge.app/engine/internal/search"
)

const (
	maxQueries        = 5
	resultsPerQuery   = 3
	maxPagesToScrape  = 10
	maxPageTextRunes  = 6000
	maxEvidencePerRun = 40
)

const extractSystemPrompt = `You extract factual evidence from a web page for a research brief.
Return the most relevant facts, figures, quotes and claims as short bullet
points. Only include material actually present in the page text. Skip
navigation, ads and boilerplate.`

type extractedEvidence struct {
	Facts []string `json:"facts" jsonschema:"required,description=Key facts found in the page, one per entry"`
}

var extractSchema = llm.GenerateSchema[extractedEvidence]()

// ResearchStage gathers web evidence for the topic: search, scrape, then
// model-assisted extraction. Every external failure degrades to less
// evidence, never to a stage error.
type ResearchStage struct {
	client   llm.Client
	provider search.Provider
	reader   search.Reader
	emitter  *event.Emitter
}

func NewResearchStage(client llm.Client, provider search.Provider, reader search.Reader, emitter *event.Emitter) *ResearchStage {
	return &ResearchStage{client: client, provider: provider, reader: reader, emitter: emitter}
}

func (st *ResearchStage) Run(ctx context.Context, s graph.State) (graph.Update, error) {
	queries := s.Queries
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	st.emitter.Emit(ctx, event.TypeStageStarted, Research, fmt.Sprintf("researching with %d queries", len(queries)), nil)

	// Collect search hits across queries, keeping the first occurrence of
	// each URL.
	seen := make(map[string]bool)
	var hits []search.Result
	for _, q := range queries {
		for _, r := range st.provider.Search(ctx, q, resultsPerQuery, s.RecencyDays) {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			hits = append(hits, r)
		}
	}

	if len(hits) > maxPagesToScrape {
		hits = hits[:maxPagesToScrape]
	}

	var evidence []model.EvidenceItem
	for _, hit := range hits {
		text := st.reader.Fetch(ctx, hit.URL)
		if text == "" {
			// Fall back to the search snippet so the source still counts.
			text = hit.Content
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		item, err := st.extract(ctx, hit, truncate(text, maxPageTextRunes))
		if err != nil {
			slog.WarnContext(ctx, "evidence extraction failed", "url", hit.URL, "error", err)
			continue
		}
		if item.Snippet == "" {
			continue
		}
		evidence = append(evidence, item)

		st.emitter.Emit(ctx, event.TypeProgress, Research, "extracted evidence from "+hit.URL, nil)
	}

	evidence = model.DedupeEvidence(evidence)
	if len(evidence) > maxEvidencePerRun {
		evidence = evidence[:maxEvidencePerRun]
	}

	st.emitter.Emit(ctx, event.TypeStageCompleted, Research, fmt.Sprintf("collected %d evidence items", len(evidence)), map[string]any{
		"sources":  len(hits),
		"evidence": len(evidence),
	})

	return graph.Update{Evidence: evidence}, nil
}

// extract condenses one page into a single sourced evidence item.
func (st *ResearchStage) extract(ctx context.Context, hit search.Result, text string) (model.EvidenceItem, error) {
	var out extractedEvidence
	_, err := st.client.Chat(ctx, llm.Request{
		SystemPrompt: extractSystemPrompt,
		UserPrompt: fmt.Sprintf("Source title: %s\nSource URL: %s\nPublished: %s\n\nPage text:\n%s",
			hit.Title, hit.URL, hit.PublishedAt, text),
		SchemaName:  "extracted_evidence",
		Schema:      extractSchema,
		MaxTokens:   2048,
		Temperature: llm.Temp(0),
	}, &out)
	if err != nil {
		return model.EvidenceItem{}, err
	}

	snippet := ""
	if len(out.Facts) > 0 {
		snippet = "- " + strings.Join(out.Facts, "\n- ")
	}
	return model.EvidenceItem{
		Title:       hit.Title,
		URL:         hit.URL,
		Snippet:     snippet,
		PublishedAt: hit.PublishedAt,
		Source:      hit.URL,
	}, nil
}
