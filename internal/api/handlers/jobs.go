package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-splitter/internal/api/middleware"
	"github.com/dvloznov/statement-splitter/internal/export"
	"github.com/dvloznov/statement-splitter/internal/gcsuploader"
	"github.com/dvloznov/statement-splitter/internal/jobs"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
	"github.com/dvloznov/statement-splitter/internal/stream"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	maxBytes  int64
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, maxBytes int64, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		maxBytes:  maxBytes,
		log:       log,
	}
}

// CreateJob handles POST /api/v1/jobs
// It accepts either a multipart upload or a JSON body naming a gs:// object.
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var job *jobs.ExtractStatementJob
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		doc, status, msg := readUpload(w, r, h.maxBytes)
		if doc == nil {
			middleware.WriteError(w, status, msg)
			return
		}
		job = &jobs.ExtractStatementJob{
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			MIMEType:   doc.MIMEType,
			Data:       doc.Data,
		}
	} else {
		var req struct {
			GCSURI   string `json:"gcs_uri"`
			Filename string `json:"filename"`
			MIMEType string `json:"mime_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if _, _, err := gcsuploader.ParseGCSURI(req.GCSURI); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "gcs_uri must look like gs://bucket/object")
			return
		}
		if req.Filename == "" {
			req.Filename = gcsuploader.ExtractFilenameFromGCSURI(req.GCSURI)
		}
		if _, _, err := pipeline.DetectKind(req.Filename, req.MIMEType); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, stream.Diagnostic(err))
			return
		}
		job = &jobs.ExtractStatementJob{
			Filename: req.Filename,
			MIMEType: req.MIMEType,
			GCSURI:   req.GCSURI,
		}
	}

	if err := h.publisher.PublishExtractStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue extraction job")
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		middleware.WriteError(w, status, "Failed to enqueue extraction job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("filename", job.Filename).Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":      job.JobID,
		"document_id": job.DocumentID,
		"status":      string(job.Status),
	})
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// ExportJob handles GET /api/v1/jobs/{id}/export?format=qbo|csv|xlsx
func (h *JobsHandler) ExportJob(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatQBO
	}
	contentType, known := export.ContentTypes[format]
	if !known {
		middleware.WriteError(w, http.StatusBadRequest, "format must be qbo, csv or xlsx")
		return
	}

	job, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.JobStatusCompleted || job.Account == nil {
		middleware.WriteError(w, http.StatusConflict, "Job has no result yet")
		return
	}

	data, err := export.Render(job.Account, format)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to render export")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to render export")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SuggestedFilename(job.Account, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *JobsHandler) lookup(w http.ResponseWriter, r *http.Request) (*jobs.ExtractStatementJob, bool) {
	jobID := r.PathValue("id")
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return nil, false
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return nil, false
	}
	return job, true
}
