package models

// DigestStats summarises one aggregation run.
// PagesSucceeded + ErrorCount always equals PagesRequested.
type DigestStats struct {
	// PagesRequested is the number of candidates actually attempted.
	PagesRequested int `json:"pages_requested"`

	// PagesSucceeded is the number of pages that contributed content.
	PagesSucceeded int `json:"pages_succeeded"`

	// ErrorCount is the number of pages that failed or yielded nothing.
	ErrorCount int `json:"error_count"`

	// TotalBytes is the exact UTF-8 byte length of all page blocks.
	TotalBytes int `json:"total_bytes"`

	// DataExtracted is TotalBytes formatted for humans ("2.00 KB").
	DataExtracted string `json:"data_extracted"`
}

// DigestResult is the combined document plus its run statistics.
type DigestResult struct {
	// Markdown is every successful page block concatenated in input order.
	Markdown string `json:"markdown"`

	Stats DigestStats `json:"stats"`
}

// DiscoverRequest is the payload for POST /api/v1/discover.
type DiscoverRequest struct {
	// URL is the seed page to discover from. Required.
	URL string `json:"url" binding:"required,url"`
}

// DiscoverResponse is the response for POST /api/v1/discover.
type DiscoverResponse struct {
	Success bool            `json:"success"`
	Pages   []CandidatePage `json:"pages"`
	Total   int             `json:"total"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// DigestRequest is the payload for POST /api/v1/digest.
// Either URL (discover first, then aggregate) or Pages (aggregate a
// hand-assembled list) must be set.
type DigestRequest struct {
	URL   string          `json:"url,omitempty" binding:"omitempty,url"`
	Pages []CandidatePage `json:"pages,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// DigestResponse is the immediate response for POST /api/v1/digest.
type DigestResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// DigestStatusResponse is the response for GET /api/v1/digest/:id.
type DigestStatusResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Pages  []CandidatePage `json:"pages,omitempty"`
	Result *DigestResult   `json:"result,omitempty"`
}

// DigestJob tracks an in-progress digest operation.
type DigestJob struct {
	ID            string
	Status        string // "processing", "completed", "partial", "failed"
	Pages         []CandidatePage
	Result        *DigestResult
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
