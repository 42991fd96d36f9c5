package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/use-agent/sitedigest/config"
	"github.com/use-agent/sitedigest/models"
)

// fakeFetcher returns canned outcomes per URL. URLs with no entry fail
// like an ordinary page error (Succeeded=false).
type fakeFetcher struct {
	mu       sync.Mutex
	outcomes map[string]*models.FetchOutcome
	errs     map[string]error
	calls    []string
	onFetch  func(url string)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*models.FetchOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.onFetch != nil {
		f.onFetch(url)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if o, ok := f.outcomes[url]; ok {
		return o, nil
	}
	return &models.FetchOutcome{Succeeded: false}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newDiscoverer(f Fetcher) *Discoverer {
	return NewDiscoverer(f, config.DiscoveryConfig{})
}

func TestDiscover_SeedIsAlwaysFirst(t *testing.T) {
	seed := "https://example.com/docs/"
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		seed: {
			Succeeded:      true,
			PrimaryContent: "# Getting Started\n\nWelcome to the docs.",
			Links: models.LinksResult{Internal: []models.Link{
				{Href: "https://example.com/docs/install", Text: "Install"},
			}},
		},
	}}

	pages := newDiscoverer(f).Discover(context.Background(), seed)

	if len(pages) == 0 {
		t.Fatal("Discover returned an empty list")
	}
	if pages[0].URL != seed {
		t.Errorf("first page URL = %q, want seed %q", pages[0].URL, seed)
	}
	if pages[0].Status != models.PageStatusCrawled {
		t.Errorf("seed status = %q, want %q", pages[0].Status, models.PageStatusCrawled)
	}
	if pages[0].Title != "Getting Started" {
		t.Errorf("seed title = %q, want %q", pages[0].Title, "Getting Started")
	}
	if f.callCount() != 1 {
		t.Errorf("fetcher called %d times, want exactly 1", f.callCount())
	}
}

func TestDiscover_SeedFetchError(t *testing.T) {
	seed := "https://example.com/"
	f := &fakeFetcher{errs: map[string]error{seed: errors.New("browser gone")}}

	pages := newDiscoverer(f).Discover(context.Background(), seed)

	if len(pages) != 1 {
		t.Fatalf("got %d pages, want exactly 1", len(pages))
	}
	want := models.CandidatePage{URL: seed, Title: models.SeedFallbackTitle, Status: models.PageStatusPending}
	if pages[0] != want {
		t.Errorf("fallback page = %+v, want %+v", pages[0], want)
	}
}

func TestDiscover_SeedFetchNotSucceeded(t *testing.T) {
	seed := "https://example.com/"
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		seed: {Succeeded: false, Links: models.LinksResult{Internal: []models.Link{
			{Href: "https://example.com/a", Text: "A"},
		}}},
	}}

	pages := newDiscoverer(f).Discover(context.Background(), seed)

	if len(pages) != 1 {
		t.Fatalf("got %d pages, want only the seed when the fetch did not succeed", len(pages))
	}
	if pages[0].Status != models.PageStatusPending {
		t.Errorf("seed status = %q, want pending", pages[0].Status)
	}
	if pages[0].Title != models.PlaceholderTitle {
		t.Errorf("seed title = %q, want placeholder", pages[0].Title)
	}
}

func TestDiscover_LinkFiltering(t *testing.T) {
	seed := "https://example.com/docs/"

	tests := []struct {
		name     string
		link     models.Link
		wantKept bool
		wantURL  string
	}{
		{
			name:     "empty href skipped",
			link:     models.Link{Href: "", Text: "x"},
			wantKept: false,
		},
		{
			name:     "relative href resolved against seed",
			link:     models.Link{Href: "guide", Text: "Guide"},
			wantKept: true,
			wantURL:  "https://example.com/docs/guide",
		},
		{
			name:     "root-relative href resolved",
			link:     models.Link{Href: "/about", Text: "About"},
			wantKept: true,
			wantURL:  "https://example.com/about",
		},
		{
			name:     "absolute same-host kept",
			link:     models.Link{Href: "https://example.com/pricing", Text: "Pricing"},
			wantKept: true,
			wantURL:  "https://example.com/pricing",
		},
		{
			name:     "scheme difference ignored for host check",
			link:     models.Link{Href: "http://example.com/faq", Text: "FAQ"},
			wantKept: true,
			wantURL:  "http://example.com/faq",
		},
		{
			name:     "other host skipped",
			link:     models.Link{Href: "https://other.com/docs", Text: "x"},
			wantKept: false,
		},
		{
			name:     "www subdomain is a different host",
			link:     models.Link{Href: "https://www.example.com/docs", Text: "x"},
			wantKept: false,
		},
		{
			name:     "denylisted path skipped",
			link:     models.Link{Href: "https://example.com/login", Text: "x"},
			wantKept: false,
		},
		{
			name:     "denylist matches substrings anywhere",
			link:     models.Link{Href: "https://example.com/adminstuff", Text: "x"},
			wantKept: false,
		},
		{
			name:     "denylist is case-insensitive",
			link:     models.Link{Href: "https://example.com/SignUp", Text: "x"},
			wantKept: false,
		},
		{
			name:     "terminology is not on the denylist",
			link:     models.Link{Href: "https://example.com/terminology", Text: "Terms"},
			wantKept: true,
			wantURL:  "https://example.com/terminology",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
				seed: {
					Succeeded:      true,
					PrimaryContent: "# Docs",
					Links:          models.LinksResult{Internal: []models.Link{tt.link}},
				},
			}}

			pages := newDiscoverer(f).Discover(context.Background(), seed)

			if tt.wantKept {
				if len(pages) != 2 {
					t.Fatalf("got %d pages, want seed + 1 candidate", len(pages))
				}
				if pages[1].URL != tt.wantURL {
					t.Errorf("candidate URL = %q, want %q", pages[1].URL, tt.wantURL)
				}
				if pages[1].Status != models.PageStatusPending {
					t.Errorf("candidate status = %q, want pending", pages[1].Status)
				}
			} else {
				if len(pages) != 1 {
					t.Fatalf("got %d pages, want the link filtered out", len(pages))
				}
			}
		})
	}
}

func TestDiscover_NoDeduplication(t *testing.T) {
	seed := "https://example.com/"
	dup := models.Link{Href: "https://example.com/changelog", Text: "Changelog"}
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		seed: {
			Succeeded:      true,
			PrimaryContent: "# Home",
			Links:          models.LinksResult{Internal: []models.Link{dup, dup}},
		},
	}}

	pages := newDiscoverer(f).Discover(context.Background(), seed)

	if len(pages) != 3 {
		t.Fatalf("got %d pages, want seed + 2 duplicate candidates", len(pages))
	}
	if pages[1].URL != pages[2].URL {
		t.Errorf("duplicate entries differ: %q vs %q", pages[1].URL, pages[2].URL)
	}
}

func TestDiscover_CandidateOrderMatchesFetcher(t *testing.T) {
	seed := "https://example.com/"
	f := &fakeFetcher{outcomes: map[string]*models.FetchOutcome{
		seed: {
			Succeeded:      true,
			PrimaryContent: "# Home",
			Links: models.LinksResult{Internal: []models.Link{
				{Href: "https://example.com/c", Text: "C"},
				{Href: "https://example.com/a", Text: "A"},
				{Href: "https://example.com/b"},
			}},
		},
	}}

	pages := newDiscoverer(f).Discover(context.Background(), seed)

	wantURLs := []string{seed, "https://example.com/c", "https://example.com/a", "https://example.com/b"}
	if len(pages) != len(wantURLs) {
		t.Fatalf("got %d pages, want %d", len(pages), len(wantURLs))
	}
	for i, want := range wantURLs {
		if pages[i].URL != want {
			t.Errorf("pages[%d].URL = %q, want %q", i, pages[i].URL, want)
		}
	}
	// Missing anchor text gets the placeholder.
	if pages[3].Title != models.PlaceholderTitle {
		t.Errorf("pages[3].Title = %q, want placeholder", pages[3].Title)
	}
}

func TestTitleFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"heading stripped", "# Welcome\nbody", "Welcome"},
		{"leading blank lines skipped", "\n\n## API Reference\n", "API Reference"},
		{"plain first line kept", "Release Notes\nmore", "Release Notes"},
		{"empty content", "", models.PlaceholderTitle},
		{"whitespace only", "  \n\t\n", models.PlaceholderTitle},
		{"bare heading markers", "##\ntext", models.PlaceholderTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := titleFromContent(tt.content); got != tt.want {
				t.Errorf("titleFromContent(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
