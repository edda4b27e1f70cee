package models

// ErrorResponse is the generic failure body for endpoints without a richer shape.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string   `json:"status"` // "healthy" or "busy"
	Uptime   string   `json:"uptime"`
	RunState RunState `json:"run_state"`
	Version  string   `json:"version"`
}
