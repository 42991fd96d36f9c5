package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitedigest/api/handler"
	"github.com/use-agent/sitedigest/api/middleware"
	"github.com/use-agent/sitedigest/config"
	"github.com/use-agent/sitedigest/crawler"
	"github.com/use-agent/sitedigest/fetcher"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery -> Logger
//	API:     Auth (if enabled) -> RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(f *fetcher.Fetcher, d *crawler.Discoverer, a *crawler.Aggregator, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(f, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Discover
	protected.POST("/discover", handler.Discover(d))

	// Digest
	protected.POST("/digest", handler.PostDigest(d, a))
	protected.GET("/digest/:id", handler.GetDigest())

	return r
}
