package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitedigest/crawler"
	"github.com/use-agent/sitedigest/models"
	"github.com/use-agent/sitedigest/webhook"
)

// digestStore holds all in-flight and completed digest jobs.
var digestStore sync.Map

func init() {
	// Background goroutine to expire digest jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			digestStore.Range(func(key, value any) bool {
				job := value.(*models.DigestJob)
				if job.CreatedAt < cutoff {
					digestStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostDigest returns a handler for POST /api/v1/digest.
//
// Accepts either a seed URL (discover first, then aggregate) or a
// pre-assembled page list, and runs the aggregation in the background.
func PostDigest(d *crawler.Discoverer, a *crawler.Aggregator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DigestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DigestResponse{
				Status: "failed",
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "invalid request: " + err.Error(),
				},
			})
			return
		}

		if req.URL == "" && len(req.Pages) == 0 {
			c.JSON(http.StatusBadRequest, models.DigestResponse{
				Status: "failed",
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "either url or pages must be provided",
				},
			})
			return
		}

		jobID := "digest-" + randomID()
		job := &models.DigestJob{
			ID:            jobID,
			Status:        "processing",
			Pages:         req.Pages,
			CreatedAt:     time.Now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}
		digestStore.Store(jobID, job)

		go runDigest(d, a, job, req)

		c.JSON(http.StatusOK, models.DigestResponse{
			ID:     jobID,
			Status: "processing",
		})
	}
}

// GetDigest returns a handler for GET /api/v1/digest/:id.
func GetDigest() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := digestStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "digest job not found",
				},
			})
			return
		}

		job := val.(*models.DigestJob)
		c.JSON(http.StatusOK, models.DigestStatusResponse{
			ID:     job.ID,
			Status: job.Status,
			Pages:  job.Pages,
			Result: job.Result,
		})
	}
}

// runDigest discovers candidates when only a seed URL was given, then
// aggregates them into the combined document.
func runDigest(d *crawler.Discoverer, a *crawler.Aggregator, job *models.DigestJob, req models.DigestRequest) {
	ctx := context.Background()

	pages := req.Pages
	if len(pages) == 0 {
		pages = d.Discover(ctx, req.URL)
	}
	job.Pages = pages

	result := a.Aggregate(ctx, pages)
	job.Result = &result

	switch {
	case result.Stats.PagesRequested > 0 && result.Stats.ErrorCount == result.Stats.PagesRequested:
		job.Status = "failed"
	case result.Stats.ErrorCount > 0:
		job.Status = "partial"
	default:
		job.Status = "completed"
	}

	slog.Info("digest job finished",
		"id", job.ID,
		"status", job.Status,
		"pages_requested", result.Stats.PagesRequested,
		"pages_succeeded", result.Stats.PagesSucceeded,
		"data_extracted", result.Stats.DataExtracted,
	)

	if job.WebhookURL != "" {
		webhook.DeliverAsync(job.WebhookURL, job.WebhookSecret, &webhook.Event{
			Type:      "digest." + job.Status,
			JobID:     job.ID,
			Timestamp: time.Now().Unix(),
			Data: models.DigestStatusResponse{
				ID:     job.ID,
				Status: job.Status,
				Pages:  job.Pages,
				Result: job.Result,
			},
		})
	}
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
