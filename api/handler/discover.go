package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitedigest/crawler"
	"github.com/use-agent/sitedigest/models"
)

// Discover returns a handler for POST /api/v1/discover.
//
// Fetches the seed page synchronously and responds with the candidate list:
// the seed first, then its same-host links in document order.
func Discover(d *crawler.Discoverer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DiscoverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DiscoverResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "invalid request: " + err.Error(),
				},
			})
			return
		}

		pages := d.Discover(c.Request.Context(), req.URL)

		c.JSON(http.StatusOK, models.DiscoverResponse{
			Success: true,
			Pages:   pages,
			Total:   len(pages),
		})
	}
}
