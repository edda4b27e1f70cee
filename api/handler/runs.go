package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tweetscope/export"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/workflow"
)

// StartRun returns a handler for POST /api/v1/runs.
//
// The scrape continues in the background; the response carries the
// in-progress snapshot. Poll GET /api/v1/runs/current for the outcome.
func StartRun(o *workflow.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		snap, err := o.Start(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, models.RunResponse{Success: true, Run: &snap})
	}
}

// GetRun returns a handler for GET /api/v1/runs/current.
// Rows are omitted unless ?rows=true.
func GetRun(o *workflow.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := o.Snapshot()
		if c.Query("rows") != "true" {
			snap.Rows = nil
		}
		c.JSON(http.StatusOK, models.RunResponse{Success: true, Run: &snap})
	}
}

// ResetRun returns a handler for DELETE /api/v1/runs/current.
func ResetRun(o *workflow.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		o.Reset()
		snap := o.Snapshot()
		c.JSON(http.StatusOK, models.RunResponse{Success: true, Run: &snap})
	}
}

// ExportRun returns a handler for GET /api/v1/runs/current/export.
//
// ?format=csv (default), json or raw. The body is sent as an attachment
// named twitter-data-<timestamp>.<ext>.
func ExportRun(o *workflow.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			respondError(c, err)
			return
		}

		body, err := o.Export(format)
		if err != nil {
			respondError(c, err)
			return
		}

		name := export.Filename(format, time.Now())
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, format.ContentType(), []byte(body))
	}
}
