// Package crawler contains the discovery-and-aggregation pipeline: turning a
// seed page's links into a filtered candidate list, and combining fetched
// page content into a single ordered markdown document with run statistics.
//
// The pipeline never returns errors past its boundary. Failures degrade the
// result (pending statuses, error counts) instead of aborting a run.
package crawler

import (
	"context"

	"github.com/use-agent/sitedigest/models"
)

// Fetcher supplies rendered page content and link data for one URL.
//
// Ordinary page failures (navigation error, timeout, empty page) are
// reported via FetchOutcome.Succeeded = false. An error return means the
// fetcher itself is in trouble; callers treat it as a failed fetch and
// keep going.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*models.FetchOutcome, error)
}
