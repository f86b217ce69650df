package internal

import "time"

// Job is one subtitle translation request as submitted by a caller.
type Job struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	InputPath   string    `json:"input_path"`
	OutputPath  string    `json:"output_path,omitempty"`
	Instruction string    `json:"instruction,omitempty"`
	Preset      string    `json:"preset,omitempty"`
	Submitted   time.Time `json:"submitted"`
}

// Job statuses recorded in history.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// JobRecord is the persisted outcome of a job.
type JobRecord struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id,omitempty"`
	InputPath     string        `json:"input_path"`
	OutputPath    string        `json:"output_path"`
	Provider      string        `json:"provider"`
	Model         string        `json:"model"`
	Status        string        `json:"status"`
	Cues          int           `json:"cues"`
	Batches       int           `json:"batches"`
	FailedBatches int           `json:"failed_batches"`
	CachedBatches int           `json:"cached_batches"`
	InputTokens   int           `json:"input_tokens"`
	OutputTokens  int           `json:"output_tokens"`
	CostUSD       float64       `json:"cost_usd"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}
