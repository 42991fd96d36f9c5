package models

// Page status values. A candidate stays pending until its content has been
// successfully folded into a digest.
const (
	PageStatusPending = "pending"
	PageStatusCrawled = "crawled"
)

// PlaceholderTitle is used when no title could be derived for a page.
const PlaceholderTitle = "Untitled Page"

// SeedFallbackTitle is used for the seed page when its fetch failed outright.
const SeedFallbackTitle = "Main Page"

// CandidatePage is one page selected for fetching: the seed itself or a
// same-domain link discovered on it.
type CandidatePage struct {
	// URL is the absolute http/https URL of the page.
	URL string `json:"url"`

	// Title is a human-readable label; PlaceholderTitle when unknown.
	Title string `json:"title"`

	// Status is PageStatusPending or PageStatusCrawled.
	Status string `json:"status"`
}
