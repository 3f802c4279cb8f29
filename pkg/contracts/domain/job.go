package domain

import (
	"encoding/json"
	"time"
)

// JobType defines the kind of background work a job performs
type JobType string

const (
	JobTypeSensitivity JobType = "sensitivity"
)

// JobStatus represents the lifecycle state of a background job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job has finished for good.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Job is a background sensitivity sweep tracked by the queue.
type Job struct {
	ID          string          `json:"id" validate:"required,uuid"`
	Type        JobType         `json:"type"`
	DealName    string          `json:"deal_name,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"` // 0-100
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Duration returns wall time from start to finish, zero while the job has
// not run.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// JobFilter narrows a job listing.
type JobFilter struct {
	Status JobStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// Matches reports whether the job passes the filter's status constraint.
func (f JobFilter) Matches(job *Job) bool {
	return f.Status == "" || job.Status == f.Status
}

// JobList is a job listing with queue statistics.
type JobList struct {
	Jobs  []*Job     `json:"jobs"`
	Total int        `json:"total"`
	Stats QueueStats `json:"stats"`
}

// QueueStats is a snapshot of the job queue.
type QueueStats struct {
	Pending       int `json:"pending"`
	Running       int `json:"running"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Cancelled     int `json:"cancelled"`
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`
	Workers       int `json:"workers"`
}
