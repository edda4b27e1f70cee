package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tweetscope/models"
)

// respondError maps an error to the correct HTTP status code and writes a
// structured JSON error response.
func respondError(c *gin.Context, err error) {
	e := models.AsError(err)
	c.JSON(mapErrorToStatus(e), models.ErrorResponse{
		Success: false,
		Error:   e.ToDetail(),
	})
}

// badRequest reports a binding failure.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeValidation,
			Message: err.Error(),
		},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.Error) int {
	switch e.Code {
	case models.ErrCodeValidation:
		return http.StatusBadRequest // 400
	case models.ErrCodeAuth, models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized // 401
	case models.ErrCodeBuiltInProfile:
		return http.StatusForbidden // 403
	case models.ErrCodeProfileNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeBusy, models.ErrCodeNoData:
		return http.StatusConflict // 409
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeTransport, models.ErrCodeJobFailed, models.ErrCodeLLMFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodePollDeadline:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
