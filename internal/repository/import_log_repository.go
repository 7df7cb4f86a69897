package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semiquaver/royalty-import/internal/domain"
)

// ImportLogRepository records row-level import problems.
type ImportLogRepository struct {
	pool *pgxpool.Pool
}

// NewImportLogRepository wires a repository backed by pgxpool.
func NewImportLogRepository(pool *pgxpool.Pool) *ImportLogRepository {
	return &ImportLogRepository{pool: pool}
}

func (r *ImportLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO import_logs (id, job_id, tenant_id, import_type, file_name, message)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.JobID, entry.TenantID, entry.ImportType, entry.FileName, entry.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to record import log: %w", err)
	}
	return nil
}

func (r *ImportLogRepository) List(ctx context.Context, jobID uuid.UUID, limit int) ([]domain.ImportLogEntry, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, job_id, tenant_id, import_type, file_name, message, created_at
		 FROM import_logs
		 WHERE job_id = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		jobID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	entries := []domain.ImportLogEntry{}
	for rows.Next() {
		var entry domain.ImportLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.JobID,
			&entry.TenantID,
			&entry.ImportType,
			&entry.FileName,
			&entry.Message,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import logs: %w", err)
	}

	return entries, nil
}
