package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/semiquaver/royalty-import/internal/domain"
)

// jobStoreStub tracks job records and every lifecycle transition applied
// to them, so tests can assert the full state machine.
type jobStoreStub struct {
	jobs      map[uuid.UUID]*domain.ImportJob
	statuses  []domain.ImportJobStatus
	progress  []int
	createErr error
	updateErr error
}

func newJobStoreStub() *jobStoreStub {
	return &jobStoreStub{jobs: make(map[uuid.UUID]*domain.ImportJob)}
}

func (s *jobStoreStub) Create(_ context.Context, job domain.ImportJob) (domain.ImportJob, error) {
	if s.createErr != nil {
		return domain.ImportJob{}, s.createErr
	}
	job.ID = uuid.New()
	stored := job
	s.jobs[job.ID] = &stored
	s.statuses = append(s.statuses, job.Status)
	return job, nil
}

func (s *jobStoreStub) Update(_ context.Context, id uuid.UUID, update domain.ImportJobUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if update.Status != nil {
		job.Status = *update.Status
		s.statuses = append(s.statuses, *update.Status)
	}
	if update.SuccessRows != nil {
		job.SuccessRows = *update.SuccessRows
		s.progress = append(s.progress, *update.SuccessRows)
	}
	if update.FailedRows != nil {
		job.FailedRows = *update.FailedRows
	}
	if update.ErrorReport != nil {
		job.ErrorReport = update.ErrorReport
	}
	return nil
}

func (s *jobStoreStub) only(t *testing.T) *domain.ImportJob {
	t.Helper()
	if len(s.jobs) != 1 {
		t.Fatalf("expected exactly one job, got %d", len(s.jobs))
	}
	for _, job := range s.jobs {
		return job
	}
	return nil
}

type logStoreStub struct {
	entries []domain.ImportLogEntry
}

func (s *logStoreStub) Record(_ context.Context, entry domain.ImportLogEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(nopWriter{})
	return log
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func currencyRows(n int) []Row {
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, Row{
			"code":    fmt.Sprintf("C%03d", i),
			"country": fmt.Sprintf("Country %d", i),
		})
	}
	return rows
}

func newTestRunner(store *memStore, jobs *jobStoreStub, logs *logStoreStub) *Runner {
	var logStore LogStore
	if logs != nil {
		logStore = logs
	}
	return NewRunner(DefaultRegistry(), NewEngine(store), jobs, logStore, quietLogger())
}

func TestRunnerCompletesCleanImport(t *testing.T) {
	store := newMemStore()
	jobs := newJobStoreStub()
	runner := newTestRunner(store, jobs, nil).WithBatchSize(100)

	result, err := runner.Run(context.Background(), uuid.New(), "currencies", "currencies.csv", currencyRows(250))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.TotalRows != 250 || result.SuccessRows != 250 || result.FailedRows != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	job := jobs.only(t)
	if job.Status != domain.ImportJobCompleted {
		t.Fatalf("expected COMPLETED, got %s", job.Status)
	}
	if job.SuccessRows != 250 || job.FailedRows != 0 {
		t.Fatalf("unexpected job counts: %+v", job)
	}

	wantStatuses := []domain.ImportJobStatus{
		domain.ImportJobValidating,
		domain.ImportJobProcessing,
		domain.ImportJobCompleted,
	}
	if len(jobs.statuses) != len(wantStatuses) {
		t.Fatalf("expected statuses %v, got %v", wantStatuses, jobs.statuses)
	}
	for i, want := range wantStatuses {
		if jobs.statuses[i] != want {
			t.Fatalf("status %d: expected %s, got %s", i, want, jobs.statuses[i])
		}
	}

	// Progress is reported after every batch and never decreases.
	wantProgress := []int{100, 200, 250, 250}
	if len(jobs.progress) != len(wantProgress) {
		t.Fatalf("expected progress %v, got %v", wantProgress, jobs.progress)
	}
	for i, want := range wantProgress {
		if jobs.progress[i] != want {
			t.Fatalf("progress %d: expected %d, got %d", i, want, jobs.progress[i])
		}
	}

	if got := store.count("currencies"); got != 250 {
		t.Fatalf("expected 250 persisted currencies, got %d", got)
	}
}

func TestRunnerFailsJobOnSchemaErrors(t *testing.T) {
	store := newMemStore()
	jobs := newJobStoreStub()
	logs := &logStoreStub{}
	runner := newTestRunner(store, jobs, logs)

	rows := []Row{
		{"code": "USD", "country": "United States"},
		{"code": "EUR"},
	}

	result, err := runner.Run(context.Background(), uuid.New(), "currencies", "currencies.csv", rows)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	want := `Row 2: missing required field "country"`
	if len(result.Errors) != 1 || result.Errors[0] != want {
		t.Fatalf("expected [%q], got %v", want, result.Errors)
	}

	job := jobs.only(t)
	if job.Status != domain.ImportJobFailed {
		t.Fatalf("expected FAILED, got %s", job.Status)
	}
	if job.SuccessRows != 0 || job.FailedRows != 1 {
		t.Fatalf("unexpected job counts: %+v", job)
	}
	if len(job.ErrorReport) != 1 || job.ErrorReport[0] != want {
		t.Fatalf("unexpected error report: %v", job.ErrorReport)
	}

	// No batch runs after a validation failure.
	for _, status := range jobs.statuses {
		if status == domain.ImportJobProcessing {
			t.Fatal("job must not enter PROCESSING when validation fails")
		}
	}
	if got := store.count("currencies"); got != 0 {
		t.Fatalf("expected no persisted rows, got %d", got)
	}

	if len(logs.entries) != 1 || logs.entries[0].Message != want {
		t.Fatalf("expected error mirrored to import log, got %v", logs.entries)
	}
}

func TestRunnerStopsAtFirstFailingBatchKeepingEarlierBatches(t *testing.T) {
	store := newMemStore()
	// "C220" lands in the third batch of 100, so batches one and two
	// commit before the run stops.
	store.seed(RefCurrency, "C220")
	jobs := newJobStoreStub()
	logs := &logStoreStub{}
	runner := newTestRunner(store, jobs, logs).WithBatchSize(100)

	result, err := runner.Run(context.Background(), uuid.New(), "currencies", "currencies.csv", currencyRows(250))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if result.SuccessRows != 200 {
		t.Fatalf("expected 200 committed rows reported, got %d", result.SuccessRows)
	}
	want := `database already contains currency "C220"`
	if len(result.Errors) != 1 || result.Errors[0] != want {
		t.Fatalf("expected [%q], got %v", want, result.Errors)
	}

	if got := store.count("currencies"); got != 200 {
		t.Fatalf("expected exactly the first two batches persisted, got %d", got)
	}

	job := jobs.only(t)
	if job.Status != domain.ImportJobFailed {
		t.Fatalf("expected FAILED, got %s", job.Status)
	}
	if job.SuccessRows != 200 || job.FailedRows != 1 {
		t.Fatalf("unexpected job counts: %+v", job)
	}
	if len(logs.entries) != 1 || logs.entries[0].Message != want {
		t.Fatalf("expected error mirrored to import log, got %v", logs.entries)
	}
}

func TestRunnerUnknownTableCreatesNoJob(t *testing.T) {
	jobs := newJobStoreStub()
	runner := newTestRunner(newMemStore(), jobs, nil)

	_, err := runner.Run(context.Background(), uuid.New(), "playlists", "playlists.csv", []Row{{"name": "x"}})
	if !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if len(jobs.jobs) != 0 {
		t.Fatalf("expected no job record, got %d", len(jobs.jobs))
	}
}

func TestRunnerSurfacesStoreFailureAsSoleError(t *testing.T) {
	store := newMemStore()
	store.failInsert = 1
	store.insertErr = errors.New("connection reset by peer")
	jobs := newJobStoreStub()
	runner := newTestRunner(store, jobs, nil)

	result, err := runner.Run(context.Background(), uuid.New(), "currencies", "currencies.csv", currencyRows(3))
	if err == nil {
		t.Fatal("expected infrastructure error")
	}
	if result.Success {
		t.Fatal("expected failed result")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected the store error as sole result error, got %v", result.Errors)
	}

	job := jobs.only(t)
	if job.Status != domain.ImportJobFailed {
		t.Fatalf("expected FAILED, got %s", job.Status)
	}
	if len(job.ErrorReport) != 1 {
		t.Fatalf("expected single-entry error report, got %v", job.ErrorReport)
	}
	if got := store.count("currencies"); got != 0 {
		t.Fatalf("expected zero rows committed, got %d", got)
	}
}

func TestRunnerJobCreateFailureAbortsRun(t *testing.T) {
	jobs := newJobStoreStub()
	jobs.createErr = errors.New("database unavailable")
	store := newMemStore()
	runner := newTestRunner(store, jobs, nil)

	_, err := runner.Run(context.Background(), uuid.New(), "currencies", "currencies.csv", currencyRows(2))
	if err == nil {
		t.Fatal("expected error when job record cannot be created")
	}
	if got := store.count("currencies"); got != 0 {
		t.Fatalf("expected no writes without a job record, got %d", got)
	}
}
