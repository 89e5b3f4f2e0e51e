package search

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"draftforge.app/engine/core/config"
)

const maxPageBytes = 512 * 1024

// PageReader extracts readable page text through a reader proxy (Jina-style
// "prefix the URL" API) and falls back to fetching the raw page and
// stripping markup when the proxy is unavailable.
type PageReader struct {
	readerURL string
	client    *http.Client
}

func NewPageReader(cfg config.SearchConfig) *PageReader {
	return &PageReader{
		readerURL: strings.TrimRight(cfg.ReaderURL, "/"),
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Fetch returns the readable text of the page, or "" when both the reader
// proxy and the direct fetch fail.
func (r *PageReader) Fetch(ctx context.Context, url string) string {
	if text := r.get(ctx, r.readerURL+"/"+url); text != "" {
		return text
	}

	slog.DebugContext(ctx, "reader proxy failed, fetching page directly", "url", url)
	raw := r.get(ctx, url)
	if raw == "" {
		return ""
	}
	return stripHTML(raw)
}

func (r *PageReader) get(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "text/plain, text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		slog.WarnContext(ctx, "page fetch failed", "url", url, "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return ""
	}
	return string(body)
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`[ \t]{2,}`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// stripHTML reduces an HTML document to its visible text. Crude, but the
// output only feeds an extraction prompt, not a renderer.
func stripHTML(doc string) string {
	out := scriptRe.ReplaceAllString(doc, " ")
	out = tagRe.ReplaceAllString(out, " ")
	out = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(out)
	out = spaceRe.ReplaceAllString(out, " ")
	out = blankRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

var _ Reader = (*PageReader)(nil)
