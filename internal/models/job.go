package models

import "time"

// Job is the envelope queued on the analysis job stream.
type Job struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker"`
	Params      Params    `json:"params"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobState is the terminal state of a processed job.
type JobState string

const (
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobResult is what the worker publishes for a processed job.
type JobResult struct {
	ID          string          `json:"id"`
	Ticker      string          `json:"ticker"`
	State       JobState        `json:"state"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

// ErrorResponse is the JSON body of every HTTP error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
