package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/statement-splitter/internal/api/middleware"
)

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// NewRouter registers every endpoint on a new mux.
func NewRouter(extract *ExtractHandler, jobsHandler *JobsHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", Health)

	mux.HandleFunc("POST /api/v1/extract", extract.Extract)

	mux.HandleFunc("POST /api/v1/jobs", jobsHandler.CreateJob)
	mux.HandleFunc("GET /api/v1/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", jobsHandler.GetJob)
	mux.HandleFunc("GET /api/v1/jobs/{id}/export", jobsHandler.ExportJob)

	return mux
}
