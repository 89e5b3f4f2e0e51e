// Package search wraps the external web search and page extraction
// services the research stage depends on. Both degrade to empty results
// rather than erroring; losing evidence never fails a job.
package search

import "context"

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	PublishedAt string `json:"published_date,omitempty"`
}

// Provider finds web results for a query. Implementations absorb transport
// and upstream failures and return an empty slice instead of an error.
type Provider interface {
	Search(ctx context.Context, query string, maxResults, recencyDays int) []Result
}

// Reader extracts the readable text of a web page. An empty string means
// the page could not be fetched.
type Reader interface {
	Fetch(ctx context.Context, url string) string
}
