package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bindery/internal/api"
	"bindery/internal/bundler"
	"bindery/internal/jobs"
	"bindery/internal/logging"
)

// bundlerService narrows the bundler surface the handlers touch, so handler
// tests can substitute a fake without running real builds.
type bundlerService interface {
	CreateJob(ctx context.Context, req bundler.CreateRequest) (*bundler.CreateResult, error)
	GetJob(ctx context.Context, jobID string) (*jobs.Job, error)
	ListJobs(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	Cancel(ctx context.Context, jobID string) error
	OpenPart(ctx context.Context, jobID string, partIndex int) (*bundler.PartStream, error)
	FinishDownload(ctx context.Context, jobID string, partIndex int) error
	CacheStats(ctx context.Context) (*bundler.CacheStats, error)
	ClearCache(ctx context.Context) (int, error)
}

func (s *apiServer) handleDownloads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listDownloads(w, r)
	case http.MethodPost:
		s.createDownload(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) listDownloads(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := jobs.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	list, err := s.bundler.ListJobs(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" {
		filtered := list[:0]
		for _, job := range list {
			if job.UserID == user {
				filtered = append(filtered, job)
			}
		}
		list = filtered
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(list)})
}

func (s *apiServer) createDownload(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := jobs.KindSelection
	if trimmed := strings.TrimSpace(req.Kind); trimmed != "" {
		parsed, ok := jobs.ParseKind(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", trimmed))
			return
		}
		kind = parsed
	}

	result, err := s.bundler.CreateJob(r.Context(), bundler.CreateRequest{
		UserID:         req.UserID,
		Kind:           kind,
		FileIDs:        req.FileIDs,
		ScopeID:        req.ScopeID,
		SplitEnabled:   req.SplitEnabled,
		SplitSizeBytes: req.SplitSizeBytes,
	})
	if err != nil {
		switch {
		case errors.Is(err, bundler.ErrEmptyRequest), errors.Is(err, bundler.ErrNoFilesAvailable):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, bundler.ErrActiveJobExists):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	status := http.StatusAccepted
	if result.Cached {
		status = http.StatusOK
	}
	s.writeJSON(w, status, api.CreateDownloadResponse{
		JobID:              result.JobID,
		Cached:             result.Cached,
		EstimatedSizeBytes: result.EstimatedSizeBytes,
		FileCount:          result.FileCount,
		NeedsConfirmation:  result.NeedsConfirmation,
	})
}

func (s *apiServer) handleDownloadItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/downloads/")
	if rest == "" {
		s.writeError(w, http.StatusNotFound, "download job not found")
		return
	}

	jobID, tail, hasTail := strings.Cut(rest, "/")
	if hasTail {
		partStr, ok := strings.CutPrefix(tail, "parts/")
		if !ok || strings.Contains(partStr, "/") {
			s.writeError(w, http.StatusNotFound, "not found")
			return
		}
		part, err := strconv.Atoi(partStr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid part index")
			return
		}
		s.streamPart(w, r, jobID, part)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.showDownload(w, r, jobID)
	case http.MethodDelete:
		s.cancelDownload(w, r, jobID)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) showDownload(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.bundler.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "download job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: api.FromJob(job)})
}

func (s *apiServer) cancelDownload(w http.ResponseWriter, r *http.Request, jobID string) {
	err := s.bundler.Cancel(r.Context(), jobID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, jobs.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "download job not found")
	case errors.Is(err, bundler.ErrNotCancellable):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) streamPart(w http.ResponseWriter, r *http.Request, jobID string, part int) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stream, err := s.bundler.OpenPart(r.Context(), jobID, part)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "download job not found")
		return
	case errors.Is(err, bundler.ErrPartOutOfRange):
		s.writeError(w, http.StatusNotFound, "part not found")
		return
	case errors.Is(err, bundler.ErrJobNotReady):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer stream.Reader.Close()

	w.Header().Set("Content-Type", stream.MIMEType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", stream.FileName))
	rangeRequest := r.Header.Get("Range") != ""
	http.ServeContent(w, r, stream.FileName, stream.ModTime, stream.Reader)

	// Completion is only recorded for a full-body transfer the client stayed
	// connected for. Range requests resume later; the final full read of the
	// last part flips the job to completed.
	if rangeRequest || r.Context().Err() != nil {
		return
	}
	if err := s.bundler.FinishDownload(r.Context(), jobID, part); err != nil {
		s.log().Warn("recording part delivery failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Int(logging.FieldPart, part),
			logging.Error(err),
		)
	}
}
