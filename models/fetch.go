package models

// FetchOutcome is what the page fetcher reports for one requested URL.
// The crawler consumes it but does not own its construction.
type FetchOutcome struct {
	// Succeeded is false for ordinary page failures (navigation error,
	// timeout, empty page). The fetcher reports those here instead of
	// returning an error.
	Succeeded bool `json:"succeeded"`

	// PrimaryContent is the best-quality extracted markdown (readability
	// pass). Empty when extraction found nothing usable.
	PrimaryContent string `json:"primary_content,omitempty"`

	// FallbackContent is the full-page markdown, used only when
	// PrimaryContent is empty.
	FallbackContent string `json:"fallback_content,omitempty"`

	// Links are the hyperlinks found on the page, partitioned by whether
	// their host matches the fetched page's host.
	Links LinksResult `json:"links"`
}

// LinksResult separates extracted links into internal and external groups.
type LinksResult struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}

// Link represents a hyperlink extracted from a page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}
