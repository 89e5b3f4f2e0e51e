package model

// EvidenceItem is one structured research fact with source attribution.
// URL is never empty; items are deduplicated by URL within a research pass.
type EvidenceItem struct {
	Title       string `json:"title" jsonschema:"required"`
	URL         string `json:"url" jsonschema:"required"`
	Snippet     string `json:"snippet" jsonschema:"required,description=The fact or statistic and its surrounding context"`
	PublishedAt string `json:"published_at,omitempty"`
	Source      string `json:"source,omitempty"`
}

// DedupeEvidence collapses items sharing a URL, last wins, dropping entries
// with an empty URL. First-occurrence order is preserved.
func DedupeEvidence(items []EvidenceItem) []EvidenceItem {
	index := make(map[string]int, len(items))
	out := make([]EvidenceItem, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		if i, ok := index[it.URL]; ok {
			out[i] = it
			continue
		}
		index[it.URL] = len(out)
		out = append(out, it)
	}
	return out
}
