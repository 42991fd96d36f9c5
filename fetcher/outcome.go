package fetcher

import (
	"log/slog"
	"strings"

	"github.com/use-agent/sitedigest/cleaner"
	"github.com/use-agent/sitedigest/models"
)

// buildOutcome turns rendered HTML into the outcome the crawler consumes:
// readability-extracted markdown as primary content, full-page markdown as
// fallback, and the page's links partitioned by host.
func (f *Fetcher) buildOutcome(rawHTML, sourceURL string) *models.FetchOutcome {
	links := cleaner.ExtractLinks(rawHTML, sourceURL)

	contentHTML := rawHTML
	if f.fetchCfg.ContentSelector != "" {
		scoped, err := cleaner.ScopeContent(rawHTML, f.fetchCfg.ContentSelector)
		if err != nil {
			slog.Warn("content selector failed, using whole page",
				"selector", f.fetchCfg.ContentSelector, "error", err,
			)
		} else {
			contentHTML = scoped
		}
	}

	var primary string
	if article, ok := cleaner.ExtractContent(contentHTML, sourceURL); ok {
		md, err := cleaner.ToMarkdown(f.converter, article.Content, sourceURL)
		if err != nil {
			slog.Warn("markdown conversion of extracted content failed",
				"url", sourceURL, "error", err,
			)
		} else {
			primary = strings.TrimSpace(md)
		}
	}

	// The fallback is only consulted when the primary is empty, so skip
	// converting the whole page otherwise.
	var fallback string
	if primary == "" {
		md, err := cleaner.ToMarkdown(f.converter, contentHTML, sourceURL)
		if err != nil {
			slog.Warn("markdown conversion of full page failed",
				"url", sourceURL, "error", err,
			)
		} else {
			fallback = strings.TrimSpace(md)
		}
	}

	return &models.FetchOutcome{
		Succeeded:       true,
		PrimaryContent:  primary,
		FallbackContent: fallback,
		Links:           links,
	}
}
