package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"draftforge.app/engine/core/config"
)

// TavilyProvider calls the Tavily search API.
type TavilyProvider struct {
	cfg    config.SearchConfig
	client *http.Client
}

func NewTavilyProvider(cfg config.SearchConfig) *TavilyProvider {
	return &TavilyProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Days       int    `json:"days,omitempty"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search queries Tavily. Failures are logged and yield an empty slice.
func (p *TavilyProvider) Search(ctx context.Context, query string, maxResults, recencyDays int) []Result {
	body, err := json.Marshal(tavilyRequest{
		APIKey:     p.cfg.APIKey,
		Query:      query,
		MaxResults: maxResults,
		Days:       recencyDays,
	})
	if err != nil {
		slog.ErrorContext(ctx, "encoding search request", "error", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		slog.ErrorContext(ctx, "building search request", "error", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "search request failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.WarnContext(ctx, "search returned non-200", "query", query, "status", resp.StatusCode)
		return nil
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		slog.WarnContext(ctx, "decoding search response", "query", query, "error", err)
		return nil
	}

	if len(parsed.Results) > maxResults {
		parsed.Results = parsed.Results[:maxResults]
	}
	return parsed.Results
}

var _ Provider = (*TavilyProvider)(nil)

// String implements fmt.Stringer for debug logging without leaking the key.
func (p *TavilyProvider) String() string {
	return fmt.Sprintf("tavily(%s)", p.cfg.BaseURL)
}
