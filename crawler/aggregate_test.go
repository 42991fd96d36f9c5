package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/sitedigest/config"
	"github.com/use-agent/sitedigest/models"
)

func newAggregator(f Fetcher, concurrency int) *Aggregator {
	return NewAggregator(f, config.DigestConfig{Concurrency: concurrency})
}

func candidates(urls ...string) []models.CandidatePage {
	pages := make([]models.CandidatePage, len(urls))
	for i, u := range urls {
		pages[i] = models.CandidatePage{URL: u, Title: fmt.Sprintf("Page %d", i+1), Status: models.PageStatusPending}
	}
	return pages
}

func successOutcome(content string) *models.FetchOutcome {
	return &models.FetchOutcome{Succeeded: true, PrimaryContent: content}
}

func TestAggregate_DocumentOrderAndStats(t *testing.T) {
	pages := candidates("https://a.com/1", "https://a.com/2", "https://a.com/3")
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		"https://a.com/1": successOutcome("alpha"),
		"https://a.com/2": successOutcome("beta"),
		"https://a.com/3": successOutcome("gamma"),
	}}

	result := newAggregator(f, 1).Aggregate(context.Background(), pages)

	want := "# Page 1\nURL: https://a.com/1\n\nalpha\n\n---\n\n" +
		"# Page 2\nURL: https://a.com/2\n\nbeta\n\n---\n\n" +
		"# Page 3\nURL: https://a.com/3\n\ngamma\n\n---\n\n"
	if result.Markdown != want {
		t.Errorf("document mismatch:\ngot:  %q\nwant: %q", result.Markdown, want)
	}

	s := result.Stats
	if s.PagesRequested != 3 || s.PagesSucceeded != 3 || s.ErrorCount != 0 {
		t.Errorf("stats = %+v, want 3 requested, 3 succeeded, 0 errors", s)
	}
	if s.TotalBytes != len(want) {
		t.Errorf("TotalBytes = %d, want %d", s.TotalBytes, len(want))
	}
	for i := range pages {
		if pages[i].Status != models.PageStatusCrawled {
			t.Errorf("pages[%d].Status = %q, want crawled", i, pages[i].Status)
		}
	}
}

func TestAggregate_PartialFailureIsolated(t *testing.T) {
	pages := candidates("https://a.com/1", "https://a.com/2", "https://a.com/3")
	f := &fakeFetcher{
		outcomes: map[string]*models.FetchOutcome{
			"https://a.com/1": successOutcome("alpha"),
			"https://a.com/3": successOutcome("gamma"),
		},
		errs: map[string]error{"https://a.com/2": errors.New("net down")},
	}

	result := newAggregator(f, 1).Aggregate(context.Background(), pages)

	s := result.Stats
	if s.PagesRequested != 3 || s.PagesSucceeded != 2 || s.ErrorCount != 1 {
		t.Errorf("stats = %+v, want 3/2/1", s)
	}
	if s.PagesSucceeded+s.ErrorCount != s.PagesRequested {
		t.Errorf("invariant violated: %d + %d != %d", s.PagesSucceeded, s.ErrorCount, s.PagesRequested)
	}

	// Splitting on the separator yields one segment per success plus the
	// trailing empty segment, still in input order.
	segments := strings.Split(result.Markdown, blockSeparator)
	if len(segments) != s.PagesSucceeded+1 {
		t.Fatalf("got %d segments, want %d", len(segments), s.PagesSucceeded+1)
	}
	if segments[len(segments)-1] != "" {
		t.Errorf("trailing segment = %q, want empty", segments[len(segments)-1])
	}
	if !strings.Contains(segments[0], "alpha") || !strings.Contains(segments[1], "gamma") {
		t.Errorf("segments out of order: %q", result.Markdown)
	}
	if pages[1].Status != models.PageStatusPending {
		t.Errorf("failed page status = %q, want pending", pages[1].Status)
	}
}

func TestAggregate_AllPagesFail(t *testing.T) {
	pages := candidates("https://a.com/1", "https://a.com/2")
	f := &fakeFetcher{} // every fetch reports Succeeded=false

	result := newAggregator(f, 1).Aggregate(context.Background(), pages)

	if result.Markdown != "" {
		t.Errorf("document = %q, want empty", result.Markdown)
	}
	s := result.Stats
	if s.ErrorCount != s.PagesRequested || s.PagesSucceeded != 0 {
		t.Errorf("stats = %+v, want every page counted as an error", s)
	}
	if s.TotalBytes != 0 || s.DataExtracted != "0 B" {
		t.Errorf("size = %d (%q), want 0 B", s.TotalBytes, s.DataExtracted)
	}
}

func TestAggregate_FallbackContent(t *testing.T) {
	pages := candidates("https://a.com/1")
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		"https://a.com/1": {Succeeded: true, FallbackContent: "raw body"},
	}}

	result := newAggregator(f, 1).Aggregate(context.Background(), pages)

	if !strings.Contains(result.Markdown, "raw body") {
		t.Errorf("fallback content missing from document: %q", result.Markdown)
	}
	if result.Stats.PagesSucceeded != 1 {
		t.Errorf("PagesSucceeded = %d, want 1", result.Stats.PagesSucceeded)
	}
}

func TestAggregate_NoUsableContent(t *testing.T) {
	pages := candidates("https://a.com/1")
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		"https://a.com/1": {Succeeded: true}, // succeeded but empty
	}}

	result := newAggregator(f, 1).Aggregate(context.Background(), pages)

	if result.Stats.ErrorCount != 1 || result.Stats.PagesSucceeded != 0 {
		t.Errorf("stats = %+v, want the empty page counted as an error", result.Stats)
	}
}

func TestAggregate_MissingTitleGetsPlaceholder(t *testing.T) {
	pages := []models.CandidatePage{{URL: "https://a.com/1", Status: models.PageStatusPending}}
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		"https://a.com/1": successOutcome("content"),
	}}

	result := newAggregator(f, 1).Aggregate(context.Background(), pages)

	if !strings.HasPrefix(result.Markdown, "# "+models.PlaceholderTitle+"\n") {
		t.Errorf("document does not start with placeholder heading: %q", result.Markdown)
	}
}

func TestAggregate_NilFetcherDegradedResult(t *testing.T) {
	pages := candidates("https://a.com/1", "https://a.com/2", "https://a.com/3")

	result := newAggregator(nil, 1).Aggregate(context.Background(), pages)

	s := result.Stats
	if result.Markdown != "" || s.PagesRequested != 3 || s.PagesSucceeded != 0 || s.ErrorCount != 1 || s.TotalBytes != 0 {
		t.Errorf("degraded result = %+v / %+v, want empty document and stats {3,0,1,0}", result.Markdown, s)
	}
}

func TestAggregate_CanceledBeforeStart(t *testing.T) {
	pages := candidates("https://a.com/1", "https://a.com/2")
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		"https://a.com/1": successOutcome("alpha"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newAggregator(f, 1).Aggregate(ctx, pages)

	s := result.Stats
	if s.PagesRequested != 0 {
		t.Errorf("PagesRequested = %d, want 0 when canceled before any fetch", s.PagesRequested)
	}
	if result.Markdown != "" {
		t.Errorf("document = %q, want empty", result.Markdown)
	}
}

func TestAggregate_CancelStopsNewFetches(t *testing.T) {
	pages := candidates("https://a.com/1", "https://a.com/2", "https://a.com/3")

	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{
		outcomes: map[string]*models.FetchOutcome{
			"https://a.com/1": successOutcome("alpha"),
		},
		onFetch: func(url string) {
			if url == "https://a.com/1" {
				cancel()
				// Hold the fetch open so the dispatcher sees the
				// cancellation before another slot frees up.
				time.Sleep(50 * time.Millisecond)
			}
		},
	}

	result := newAggregator(f, 1).Aggregate(ctx, pages)

	s := result.Stats
	if s.PagesRequested != 1 {
		t.Fatalf("PagesRequested = %d, want only the in-flight page counted", s.PagesRequested)
	}
	if s.PagesSucceeded+s.ErrorCount != s.PagesRequested {
		t.Errorf("invariant violated: %+v", s)
	}
	if f.callCount() != 1 {
		t.Errorf("fetcher called %d times, want 1 after cancellation", f.callCount())
	}
}

func TestAggregate_ConcurrentKeepsInputOrder(t *testing.T) {
	urls := make([]string, 8)
	outcomes := make(map[string]*models.FetchOutcome, len(urls))
	for i := range urls {
		urls[i] = fmt.Sprintf("https://a.com/p%d", i)
		outcomes[urls[i]] = successOutcome(fmt.Sprintf("content-%d", i))
	}
	pages := candidates(urls...)

	// Earlier pages finish later, so completion order inverts input order.
	f := &fakeFetcher{
		outcomes: outcomes,
		onFetch: func(url string) {
			var idx int
			fmt.Sscanf(url, "https://a.com/p%d", &idx)
			time.Sleep(time.Duration(len(urls)-idx) * 5 * time.Millisecond)
		},
	}

	result := newAggregator(f, 4).Aggregate(context.Background(), pages)

	if result.Stats.PagesSucceeded != len(pages) {
		t.Fatalf("PagesSucceeded = %d, want %d", result.Stats.PagesSucceeded, len(pages))
	}
	last := -1
	for i := range urls {
		pos := strings.Index(result.Markdown, fmt.Sprintf("content-%d", i))
		if pos < 0 {
			t.Fatalf("content-%d missing from document", i)
		}
		if pos < last {
			t.Fatalf("content-%d appears before content-%d: document not in input order", i, i-1)
		}
		last = pos
	}
}
