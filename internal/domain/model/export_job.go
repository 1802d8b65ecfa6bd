package model

import "time"

type ExportJobStatus string

const (
	ExportJobStatusPending    ExportJobStatus = "pending"
	ExportJobStatusProcessing ExportJobStatus = "processing"
	ExportJobStatusCompleted  ExportJobStatus = "completed"
	ExportJobStatusFailed     ExportJobStatus = "failed"
)

// IsTerminal reports whether no further status transition is allowed.
func (s ExportJobStatus) IsTerminal() bool {
	return s == ExportJobStatusCompleted || s == ExportJobStatusFailed
}

// ExportJob is one export attempt. WorkflowID is immutable and unique; it is
// the idempotency key for every workflow step and the lookup key for callers.
type ExportJob struct {
	WorkflowID    string
	ProjectUnitID int
	BookIDs       []int // nil means "all books"
	Status        ExportJobStatus
	Progress      int // 0-100, non-decreasing within a run
	ProjectName   string
	Filename      string
	FileData      []byte
	FileSize      int
	RequestedBy   string
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}
