package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/semiquaver/royalty-import/internal/domain"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 100

// JobStore persists import job lifecycle records.
type JobStore interface {
	Create(ctx context.Context, job domain.ImportJob) (domain.ImportJob, error)
	Update(ctx context.Context, id uuid.UUID, update domain.ImportJobUpdate) error
}

// LogStore records row-level import problems for later inspection.
type LogStore interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
}

// RunResult is returned to the upload caller when a job reaches a
// terminal state without an infrastructure failure.
type RunResult struct {
	JobID       uuid.UUID `json:"jobId"`
	Success     bool      `json:"success"`
	Errors      []string  `json:"errors"`
	TotalRows   int       `json:"totalRows"`
	SuccessRows int       `json:"successRows"`
	FailedRows  int       `json:"failedRows"`
}

// Runner orchestrates one import request end-to-end: job record, schema
// validation, batched execution, progress tracking, terminal state.
type Runner struct {
	registry  *Registry
	engine    *Engine
	jobs      JobStore
	logs      LogStore
	log       *logrus.Logger
	batchSize int
}

// NewRunner wires a runner. logs may be nil to skip row-level logging.
func NewRunner(registry *Registry, engine *Engine, jobs JobStore, logs LogStore, log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.New()
	}
	return &Runner{
		registry:  registry,
		engine:    engine,
		jobs:      jobs,
		logs:      logs,
		log:       log,
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize overrides the default batch size. Zero or negative values
// are ignored.
func (r *Runner) WithBatchSize(size int) *Runner {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

// Run executes one import job. Validation failures are reported in the
// RunResult with a nil error; a non-nil error means an infrastructure
// failure (or unknown table), recorded on the job where one exists.
//
// Batches run strictly sequentially in file order and the runner stops at
// the first failing batch. Rows committed by earlier batches stay
// committed: the job-level outcome is partial, each batch is atomic.
func (r *Runner) Run(ctx context.Context, tenantID uuid.UUID, table, fileName string, rows []Row) (result RunResult, err error) {
	desc, err := r.registry.Lookup(table)
	if err != nil {
		return RunResult{}, err
	}

	job, err := r.jobs.Create(ctx, domain.ImportJob{
		TenantID:   tenantID,
		ImportType: table,
		FileName:   fileName,
		Status:     domain.ImportJobValidating,
		TotalRows:  len(rows),
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to create import job: %w", err)
	}

	result = RunResult{JobID: job.ID, TotalRows: len(rows), Errors: []string{}}

	jobLog := r.log.WithFields(logrus.Fields{
		"job":    job.ID,
		"tenant": tenantID,
		"table":  table,
		"rows":   len(rows),
	})
	jobLog.Info("import job started")

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("import job panicked: %v", p)
			r.failJob(ctx, job, result.SuccessRows, 1, []string{err.Error()})
			result.Success = false
			result.FailedRows = 1
			result.Errors = []string{err.Error()}
			jobLog.WithError(err).Error("import job panicked")
		}
	}()

	validation := Validate(desc, rows)
	if !validation.Success {
		r.failJob(ctx, job, 0, len(validation.Errors), validation.Errors)
		jobLog.WithField("errors", len(validation.Errors)).Warn("schema validation failed")
		result.FailedRows = len(validation.Errors)
		result.Errors = validation.Errors
		return result, nil
	}

	if err := r.updateStatus(ctx, job.ID, domain.ImportJobProcessing); err != nil {
		r.failJob(ctx, job, 0, 1, []string{err.Error()})
		return result, err
	}

	for start := 0; start < len(rows); start += r.batchSize {
		end := min(start+r.batchSize, len(rows))
		batch := rows[start:end]

		batchResult, runErr := r.engine.Run(ctx, tenantID, desc, batch)
		if runErr != nil {
			r.failJob(ctx, job, result.SuccessRows, 1, []string{runErr.Error()})
			jobLog.WithError(runErr).WithField("batch", fmt.Sprintf("rows %d-%d", start+1, end)).
				Error("import batch failed")
			result.FailedRows = 1
			result.Errors = []string{runErr.Error()}
			return result, runErr
		}
		if !batchResult.Success {
			r.failJob(ctx, job, result.SuccessRows, len(batchResult.Errors), batchResult.Errors)
			jobLog.WithFields(logrus.Fields{
				"batch":  fmt.Sprintf("rows %d-%d", start+1, end),
				"errors": len(batchResult.Errors),
			}).Warn("import batch rejected")
			result.FailedRows = len(batchResult.Errors)
			result.Errors = batchResult.Errors
			return result, nil
		}

		result.SuccessRows += len(batch)
		success := result.SuccessRows
		if err := r.jobs.Update(ctx, job.ID, domain.ImportJobUpdate{SuccessRows: &success}); err != nil {
			r.failJob(ctx, job, result.SuccessRows, 1, []string{err.Error()})
			return result, fmt.Errorf("failed to record job progress: %w", err)
		}
	}

	completed := domain.ImportJobCompleted
	success := result.SuccessRows
	zero := 0
	if err := r.jobs.Update(ctx, job.ID, domain.ImportJobUpdate{
		Status:      &completed,
		SuccessRows: &success,
		FailedRows:  &zero,
	}); err != nil {
		return result, fmt.Errorf("failed to finalize job: %w", err)
	}

	jobLog.WithField("imported", result.SuccessRows).Info("import job completed")
	result.Success = true
	return result, nil
}

func (r *Runner) updateStatus(ctx context.Context, id uuid.UUID, status domain.ImportJobStatus) error {
	if err := r.jobs.Update(ctx, id, domain.ImportJobUpdate{Status: &status}); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// failJob marks the job FAILED with its error report, best effort, and
// mirrors the errors into the import log.
func (r *Runner) failJob(ctx context.Context, job domain.ImportJob, successRows, failedRows int, errs []string) {
	failed := domain.ImportJobFailed
	if err := r.jobs.Update(ctx, job.ID, domain.ImportJobUpdate{
		Status:      &failed,
		SuccessRows: &successRows,
		FailedRows:  &failedRows,
		ErrorReport: errs,
	}); err != nil {
		r.log.WithError(err).WithField("job", job.ID).Error("failed to mark job failed")
	}

	if r.logs == nil {
		return
	}
	for _, message := range errs {
		entry := domain.ImportLogEntry{
			JobID:      job.ID,
			TenantID:   job.TenantID,
			ImportType: job.ImportType,
			FileName:   job.FileName,
			Message:    message,
		}
		if err := r.logs.Record(ctx, entry); err != nil {
			r.log.WithError(err).WithField("job", job.ID).Warn("failed to record import log entry")
			return
		}
	}
}
