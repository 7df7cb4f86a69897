package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semiquaver/royalty-import/internal/domain"
	"github.com/semiquaver/royalty-import/internal/importer"
)

// ImportJobRepository persists import job lifecycle records. It backs
// both importer.JobStore and importer.JobReader.
type ImportJobRepository struct {
	pool *pgxpool.Pool
}

// NewImportJobRepository wires a repository backed by pgxpool.
func NewImportJobRepository(pool *pgxpool.Pool) *ImportJobRepository {
	return &ImportJobRepository{pool: pool}
}

func (r *ImportJobRepository) Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domain.ImportJobValidating
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO import_jobs (id, tenant_id, import_type, file_name, status, total_rows)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		job.ID, job.TenantID, job.ImportType, job.FileName, job.Status, job.TotalRows,
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to create import job: %w", err)
	}

	return job, nil
}

func (r *ImportJobRepository) Update(ctx context.Context, id uuid.UUID, update domain.ImportJobUpdate) error {
	assignments := []string{"updated_at = now()"}
	args := []any{id}

	appendSet := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Status != nil {
		appendSet("status", *update.Status)
	}
	if update.SuccessRows != nil {
		appendSet("success_rows", *update.SuccessRows)
	}
	if update.FailedRows != nil {
		appendSet("failed_rows", *update.FailedRows)
	}
	if update.ErrorReport != nil {
		appendSet("error_report", update.ErrorReport)
	}

	query := fmt.Sprintf(`UPDATE import_jobs SET %s WHERE id = $1`, strings.Join(assignments, ", "))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("import job %s: %w", id, importer.ErrNotFound)
	}
	return nil
}

func (r *ImportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, tenant_id, import_type, file_name, status, total_rows,
		        success_rows, failed_rows, error_report, created_at, updated_at
		 FROM import_jobs WHERE id = $1`,
		id,
	)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ImportJob{}, fmt.Errorf("import job %s: %w", id, importer.ErrNotFound)
	}
	if err != nil {
		return domain.ImportJob{}, fmt.Errorf("failed to get import job: %w", err)
	}
	return job, nil
}

func (r *ImportJobRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.ImportJob, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT id, tenant_id, import_type, file_name, status, total_rows,
		        success_rows, failed_rows, error_report, created_at, updated_at
		 FROM import_jobs
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.ImportJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import jobs: %w", err)
	}

	return jobs, nil
}

func scanJob(row pgx.Row) (domain.ImportJob, error) {
	var job domain.ImportJob
	err := row.Scan(
		&job.ID,
		&job.TenantID,
		&job.ImportType,
		&job.FileName,
		&job.Status,
		&job.TotalRows,
		&job.SuccessRows,
		&job.FailedRows,
		&job.ErrorReport,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	return job, err
}
