package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures one validation or persistence problem raised
// while running an import job.
type ImportLogEntry struct {
	ID         uuid.UUID `json:"id"`
	JobID      uuid.UUID `json:"jobId"`
	TenantID   uuid.UUID `json:"tenantId"`
	ImportType string    `json:"importType"`
	FileName   string    `json:"fileName"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
