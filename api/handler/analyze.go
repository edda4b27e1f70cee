package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tweetscope/models"
	"github.com/use-agent/tweetscope/workflow"
)

// Analyze returns a handler for POST /api/v1/analyze.
//
// The completion key is supplied per request (BYOK) and forwarded only to
// the completion provider.
func Analyze(o *workflow.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		resp, err := o.Analyze(c.Request.Context(), &req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}
