package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/semiquaver/royalty-import/internal/domain"
)

// JobReader exposes the read side of import job records for the status
// endpoints.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportJob, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.ImportJob, error)
}

// Handler exposes the import pipeline over HTTP.
type Handler struct {
	runner *Runner
	jobs   JobReader
}

// NewHandler wraps the runner and job reader with HTTP endpoints.
func NewHandler(runner *Runner, jobs JobReader) *Handler {
	return &Handler{runner: runner, jobs: jobs}
}

// Mux returns the route table for the import surface.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /import", h.handleImport)
	mux.HandleFunc("GET /jobs", h.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.handleGetJob)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file is required: %v", err))
		return
	}
	defer file.Close()

	table := strings.TrimSpace(r.FormValue("table"))
	if table == "" {
		writeError(w, http.StatusBadRequest, "table is required")
		return
	}

	tenantID, err := uuid.Parse(strings.TrimSpace(r.FormValue("tenantId")))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid tenant id: %v", err))
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	rows, err := ParseRows(header.Filename, payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.runner.Run(r.Context(), tenantID, table, header.Filename, rows)
	if err != nil {
		if errors.Is(err, ErrUnknownTable) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid job id: %v", err))
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("tenantId")))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid tenant id: %v", err))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := h.jobs.ListByTenant(r.Context(), tenantID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
