package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportJobStatus is the lifecycle state of one bulk-import attempt.
// VALIDATING is the initial state; COMPLETED and FAILED are terminal.
type ImportJobStatus string

const (
	ImportJobValidating ImportJobStatus = "VALIDATING"
	ImportJobProcessing ImportJobStatus = "PROCESSING"
	ImportJobCompleted  ImportJobStatus = "COMPLETED"
	ImportJobFailed     ImportJobStatus = "FAILED"
)

// ImportJob tracks one end-to-end import attempt. It is owned by the job
// runner; nothing else writes to it.
type ImportJob struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenantId"`
	ImportType  string          `json:"importType"`
	FileName    string          `json:"fileName,omitempty"`
	Status      ImportJobStatus `json:"status"`
	TotalRows   int             `json:"totalRows"`
	SuccessRows int             `json:"successRows"`
	FailedRows  int             `json:"failedRows"`
	ErrorReport []string        `json:"errorReport,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ImportJobUpdate is a partial update applied to a job record. Nil fields
// are left untouched.
type ImportJobUpdate struct {
	Status      *ImportJobStatus
	SuccessRows *int
	FailedRows  *int
	ErrorReport []string
}
