package crawler

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/use-agent/sitedigest/config"
	"github.com/use-agent/sitedigest/models"
)

// blockSeparator terminates every page block in the combined document.
const blockSeparator = "\n\n---\n\n"

// Aggregator fetches candidate pages and folds their content into one
// markdown document plus run statistics.
type Aggregator struct {
	fetcher     Fetcher
	concurrency int
}

// NewAggregator creates an Aggregator. Concurrency below 1 means sequential
// fetching, which is also the default.
func NewAggregator(fetcher Fetcher, cfg config.DigestConfig) *Aggregator {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{fetcher: fetcher, concurrency: concurrency}
}

// pageBlock is the per-page outcome: a rendered block or a failure marker.
type pageBlock struct {
	content string
	ok      bool
}

// Aggregate fetches every candidate and concatenates the successful page
// blocks in input order, regardless of fetch completion order. Statistics
// always satisfy PagesSucceeded + ErrorCount == PagesRequested for the
// pages actually attempted.
//
// Aggregate never fails: a missing fetcher or a panic escaping the per-page
// guards yields an empty document with a single synthetic error. Canceling
// ctx stops new fetches; the partial result covers only attempted pages.
// Candidates that contributed content have their Status flipped to crawled
// in place.
func (a *Aggregator) Aggregate(ctx context.Context, pages []models.CandidatePage) (result models.DigestResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("aggregation panicked, returning degraded result", "panic", r)
			result = degradedResult(len(pages))
		}
	}()

	if a.fetcher == nil {
		slog.Error("aggregation has no fetcher, returning degraded result")
		return degradedResult(len(pages))
	}

	blocks := make([]pageBlock, len(pages))
	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup

	attempted := 0
dispatch:
	for i := range pages {
		if ctx.Err() != nil {
			slog.Warn("aggregation canceled",
				"attempted", attempted,
				"total", len(pages),
			)
			break
		}
		select {
		case <-ctx.Done():
			slog.Warn("aggregation canceled",
				"attempted", attempted,
				"total", len(pages),
			)
			break dispatch
		case sem <- struct{}{}:
		}

		attempted++
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()
			blocks[idx] = a.fetchBlock(ctx, &pages[idx])
		}(i)
	}
	wg.Wait()

	// Fold in input index order so the document never depends on fetch
	// completion order.
	var doc strings.Builder
	totalBytes := 0
	errorCount := 0
	for i := 0; i < attempted; i++ {
		if !blocks[i].ok {
			errorCount++
			continue
		}
		doc.WriteString(blocks[i].content)
		totalBytes += len(blocks[i].content)
	}

	stats := models.DigestStats{
		PagesRequested: attempted,
		PagesSucceeded: attempted - errorCount,
		ErrorCount:     errorCount,
		TotalBytes:     totalBytes,
		DataExtracted:  HumanSize(totalBytes),
	}

	slog.Info("aggregation complete",
		"requested", stats.PagesRequested,
		"succeeded", stats.PagesSucceeded,
		"errors", stats.ErrorCount,
		"size", stats.DataExtracted,
	)

	return models.DigestResult{Markdown: doc.String(), Stats: stats}
}

// fetchBlock fetches one candidate and renders its document block. All
// failure modes are contained here so a bad page never stops the run.
func (a *Aggregator) fetchBlock(ctx context.Context, page *models.CandidatePage) (block pageBlock) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("page processing panicked", "url", page.URL, "panic", r)
			block = pageBlock{}
		}
	}()

	slog.Info("fetching page", "url", page.URL)

	outcome, err := a.fetcher.Fetch(ctx, page.URL)
	if err != nil {
		slog.Error("page fetch failed", "url", page.URL, "error", err)
		return pageBlock{}
	}
	if outcome == nil || !outcome.Succeeded {
		slog.Warn("no usable result for page", "url", page.URL)
		return pageBlock{}
	}

	content := outcome.PrimaryContent
	if content == "" {
		if outcome.FallbackContent == "" {
			slog.Warn("page has no usable content", "url", page.URL)
			return pageBlock{}
		}
		content = outcome.FallbackContent
		slog.Warn("using fallback content", "url", page.URL)
	}

	title := page.Title
	if title == "" {
		title = models.PlaceholderTitle
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\nURL: ")
	b.WriteString(page.URL)
	b.WriteString("\n\n")
	b.WriteString(content)
	b.WriteString(blockSeparator)

	page.Status = models.PageStatusCrawled
	return pageBlock{content: b.String(), ok: true}
}

// degradedResult is the whole-run failure contract: structurally valid,
// zero successes, one synthetic error regardless of candidate count.
func degradedResult(requested int) models.DigestResult {
	return models.DigestResult{
		Stats: models.DigestStats{
			PagesRequested: requested,
			ErrorCount:     1,
			DataExtracted:  HumanSize(0),
		},
	}
}
