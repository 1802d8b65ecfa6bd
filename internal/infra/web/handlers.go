package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"scripture-export-service/internal/domain"
	"scripture-export-service/internal/domain/model"
)

type submitRequest struct {
	ProjectUnitID int    `json:"project_unit_id"`
	BookIDs       []int  `json:"book_ids,omitempty"`
	RequestedBy   string `json:"requested_by,omitempty"`
}

type submitResponse struct {
	WorkflowID string `json:"workflow_id"`
}

// jobResponse is the poll representation: artifact metadata without the blob.
type jobResponse struct {
	WorkflowID    string     `json:"workflow_id"`
	ProjectUnitID int        `json:"project_unit_id"`
	BookIDs       []int      `json:"book_ids,omitempty"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	ProjectName   string     `json:"project_name,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	FileSize      int        `json:"file_size,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	workflowID, err := s.exportUC.Submit(r.Context(), req.ProjectUnitID, req.BookIDs, req.RequestedBy)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Msg("submit failed")
		http.Error(w, "Failed to submit export", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(submitResponse{WorkflowID: workflowID})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.findJob(w, r)
	if !ok {
		return
	}

	resp := jobResponse{
		WorkflowID:    job.WorkflowID,
		ProjectUnitID: job.ProjectUnitID,
		BookIDs:       job.BookIDs,
		Status:        string(job.Status),
		Progress:      job.Progress,
		ProjectName:   job.ProjectName,
		Filename:      job.Filename,
		FileSize:      job.FileSize,
		Error:         job.Error,
		CreatedAt:     job.CreatedAt,
		CompletedAt:   job.CompletedAt,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.findJob(w, r)
	if !ok {
		return
	}
	if job.Status != model.ExportJobStatusCompleted {
		http.Error(w, "Export is not completed", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(job.FileData)
}

func (s *Server) findJob(w http.ResponseWriter, r *http.Request) (*model.ExportJob, bool) {
	workflowID := chi.URLParam(r, "workflowID")
	job, err := s.exportUC.GetJob(r.Context(), workflowID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, "Export not found", http.StatusNotFound)
			return nil, false
		}
		s.log.Error().Err(err).Str("workflow_id", workflowID).Msg("job lookup failed")
		http.Error(w, "Failed to read export", http.StatusServiceUnavailable)
		return nil, false
	}
	return job, true
}
