package models

import "time"

// RunState is the observable state of the workflow orchestrator.
type RunState string

const (
	RunIdle       RunState = "idle"
	RunInProgress RunState = "in_progress"
	RunCompleted  RunState = "completed"
	RunFailed     RunState = "failed"
)

// RunPhase narrows RunInProgress to the step being executed.
type RunPhase string

const (
	PhaseSubmitting  RunPhase = "submitting"
	PhasePolling     RunPhase = "polling"
	PhaseNormalizing RunPhase = "normalizing"
)

// RunSnapshot is a point-in-time copy of the orchestrator state.
type RunSnapshot struct {
	RunID      string          `json:"run_id,omitempty"`
	State      RunState        `json:"state"`
	Phase      RunPhase        `json:"phase,omitempty"`
	JobID      string          `json:"job_id,omitempty"`
	JobStatus  JobStatus       `json:"job_status,omitempty"`
	Targets    []string        `json:"targets,omitempty"`
	RowCount   int             `json:"row_count"`
	Rows       []NormalizedRow `json:"rows,omitempty"`
	Error      *ErrorDetail    `json:"error,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// RunResponse wraps a snapshot for the runs endpoints.
type RunResponse struct {
	Success bool         `json:"success"`
	Run     *RunSnapshot `json:"run,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
