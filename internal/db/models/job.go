package models

import (
	"time"
)

// JobMethod selects the optimization strategy for a job
type JobMethod string

const (
	// JobMethodGrid is exhaustive grid search
	JobMethodGrid JobMethod = "grid"
	// JobMethodAI is grid search with two-phase refinement
	JobMethodAI JobMethod = "ai"
)

// JobStatus is the lifecycle state of an optimization job
type JobStatus string

const (
	// JobStatusPending awaits a worker claim
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning is claimed by the worker; at most one job process-wide
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted finished with a result payload
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed finished with an error; never retried automatically
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled was withdrawn externally before being claimed
	JobStatusCancelled JobStatus = "cancelled"
	// JobStatusSkipped was set aside externally, e.g. on batch reset
	JobStatusSkipped JobStatus = "skipped"
)

// Terminal reports whether the status can no longer change
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusSkipped:
		return true
	}
	return false
}

// OptimizationJob is one request to tune one model for one SKU within one
// dataset. Result is set iff the job completed; Error is set iff it failed.
type OptimizationJob struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	DatasetID   uint       `gorm:"not null;index:idx_job_scope" json:"dataset_id"`
	SKU         string     `gorm:"not null;index:idx_job_scope" json:"sku"`
	ModelID     string     `gorm:"not null;index:idx_job_scope" json:"model_id"`
	Method      JobMethod  `gorm:"type:varchar(10);not null;index:idx_job_scope" json:"method"`
	PayloadJSON string     `gorm:"type:jsonb" json:"payload_json,omitempty"`
	Reason      string     `json:"reason"`
	BatchID     string     `gorm:"index" json:"batch_id"`
	Priority    int        `gorm:"index:idx_job_claim,priority:2" json:"priority"`
	Status      JobStatus  `gorm:"type:varchar(20);not null;default:'pending';index:idx_job_claim,priority:1" json:"status"`
	Progress    int        `json:"progress"`
	ResultJSON  string     `gorm:"type:jsonb" json:"result_json,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `gorm:"index:idx_job_claim,priority:3" json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
