package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/workflow"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports "busy" while a scrape run is in flight.
func Health(o *workflow.Orchestrator, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := o.State()

		status := "healthy"
		if state == models.RunInProgress {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			RunState: state,
			Version:  Version,
		})
	}
}
