package models

import "time"

// JobStatus is the client-observed status of a provider job.
// Values match the provider's wire representation.
type JobStatus string

const (
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
	JobTimedOut  JobStatus = "TIMED-OUT"
	JobAborted   JobStatus = "ABORTED"
)

var allowedTransitions = map[JobStatus]map[JobStatus]bool{
	JobRunning: {
		JobRunning:   true,
		JobSucceeded: true,
		JobFailed:    true,
		JobTimedOut:  true,
		JobAborted:   true,
	},
	JobSucceeded: {},
	JobFailed:    {},
	JobTimedOut:  {},
	JobAborted:   {},
}

// ParseJobStatus maps a provider status string onto JobStatus.
// Pre-start and transitional values ("READY", "TIMING-OUT", "ABORTING")
// are reported as Running: the job has not resolved yet.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(s) {
	case JobSucceeded, JobFailed, JobTimedOut, JobAborted:
		return JobStatus(s)
	default:
		return JobRunning
	}
}

// IsTerminal reports whether no further transition can occur.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut, JobAborted:
		return true
	}
	return false
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to JobStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// JobHandle identifies a submitted provider job.
type JobHandle struct {
	JobID     string    `json:"job_id"`
	CreatedAt time.Time `json:"created_at"`
}
