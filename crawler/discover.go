package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/use-agent/sitedigest/config"
	"github.com/use-agent/sitedigest/models"
)

// Discoverer finds candidate pages exactly one link hop from a seed URL.
type Discoverer struct {
	fetcher    Fetcher
	restricted []string
}

// NewDiscoverer creates a Discoverer. An empty denylist in cfg falls back to
// the shipped default.
func NewDiscoverer(fetcher Fetcher, cfg config.DiscoveryConfig) *Discoverer {
	restricted := cfg.RestrictedSubstrings
	if len(restricted) == 0 {
		restricted = config.DefaultRestrictedSubstrings
	}
	// Lowercase once; candidate URLs are lowered per comparison.
	lowered := make([]string, len(restricted))
	for i, s := range restricted {
		lowered[i] = strings.ToLower(s)
	}
	return &Discoverer{fetcher: fetcher, restricted: lowered}
}

// Discover fetches the seed page once and returns it plus every qualifying
// same-domain link, in the order the fetcher reported them. The seed is
// always the first element. Discover never fails: if the seed fetch errors
// out, the result is the seed alone, pending, titled "Main Page".
func (d *Discoverer) Discover(ctx context.Context, seedURL string) (pages []models.CandidatePage) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("discovery panicked, returning seed only", "url", seedURL, "panic", r)
			pages = seedFallback(seedURL)
		}
	}()

	slog.Info("starting discovery", "url", seedURL)

	if d.fetcher == nil {
		return seedFallback(seedURL)
	}

	outcome, err := d.fetcher.Fetch(ctx, seedURL)
	if err != nil || outcome == nil {
		slog.Error("seed fetch failed", "url", seedURL, "error", err)
		return seedFallback(seedURL)
	}

	status := models.PageStatusPending
	if outcome.Succeeded {
		status = models.PageStatusCrawled
	}
	pages = append(pages, models.CandidatePage{
		URL:    seedURL,
		Title:  titleFromContent(outcome.PrimaryContent),
		Status: status,
	})

	if !outcome.Succeeded {
		return pages
	}

	base, baseErr := url.Parse(seedURL)
	if baseErr != nil {
		// Without a parseable seed there is no host to validate against.
		slog.Warn("seed URL not parseable, skipping link discovery", "url", seedURL, "error", baseErr)
		return pages
	}

	for _, link := range outcome.Links.Internal {
		candidate, ok := d.filterLink(base, link)
		if !ok {
			continue
		}
		pages = append(pages, candidate)
	}

	slog.Info("discovery complete", "url", seedURL, "pages", len(pages))
	return pages
}

// filterLink applies the discovery rules in order, short-circuiting on the
// first failure: empty href, absolutization against the seed, restricted
// substrings, exact host equality. A link that fails any rule is dropped;
// the rest of discovery continues.
//
// No deduplication happens here: a target linked twice yields two
// candidates. That is longstanding behavior, carried over deliberately.
func (d *Discoverer) filterLink(base *url.URL, link models.Link) (models.CandidatePage, bool) {
	href := strings.TrimSpace(link.Href)
	if href == "" {
		return models.CandidatePage{}, false
	}

	if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
		resolved, err := base.Parse(href)
		if err != nil {
			slog.Debug("link resolution failed", "href", href, "error", err)
			return models.CandidatePage{}, false
		}
		href = resolved.String()
	}

	if d.isRestricted(href) {
		slog.Debug("skipping restricted URL", "href", href)
		return models.CandidatePage{}, false
	}

	linkURL, err := url.Parse(href)
	if err != nil {
		slog.Debug("link parse failed", "href", href, "error", err)
		return models.CandidatePage{}, false
	}

	// Exact host comparison: no scheme or www normalization. The fetcher's
	// own internal/external split is not trusted here.
	if linkURL.Host != base.Host {
		slog.Debug("skipping external URL", "href", href)
		return models.CandidatePage{}, false
	}

	title := strings.TrimSpace(link.Text)
	if title == "" {
		title = models.PlaceholderTitle
	}

	return models.CandidatePage{
		URL:    href,
		Title:  title,
		Status: models.PageStatusPending,
	}, true
}

// isRestricted reports whether the URL contains any denylisted substring.
// The match is substring-wide over the whole URL ("/adminstuff" is excluded
// because it contains "admin") — intentional, see DiscoveryConfig.
func (d *Discoverer) isRestricted(href string) bool {
	lower := strings.ToLower(href)
	for _, s := range d.restricted {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// titleFromContent derives a title from the first non-empty line of the
// extracted markdown, stripping heading markers. Returns the placeholder
// when nothing usable is found.
func titleFromContent(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if title := strings.TrimSpace(strings.TrimLeft(trimmed, "# ")); title != "" {
			return title
		}
		break
	}
	return models.PlaceholderTitle
}

// seedFallback is the degraded discovery result when the seed fetch fails.
func seedFallback(seedURL string) []models.CandidatePage {
	return []models.CandidatePage{{
		URL:    seedURL,
		Title:  models.SeedFallbackTitle,
		Status: models.PageStatusPending,
	}}
}
