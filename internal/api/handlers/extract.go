package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-splitter/internal/api/middleware"
	"github.com/dvloznov/statement-splitter/internal/logger"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
	"github.com/dvloznov/statement-splitter/internal/stream"
)

const (
	formField        = "file"
	multipartMemory  = 32 << 20
	streamBufferSize = 16
)

// ExtractHandler streams the extraction of one uploaded statement.
type ExtractHandler struct {
	proc     pipeline.Processor
	maxBytes int64
	log      zerolog.Logger
}

// NewExtractHandler creates a new extract handler. maxBytes <= 0 disables
// the upload size limit.
func NewExtractHandler(proc pipeline.Processor, maxBytes int64, log zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{proc: proc, maxBytes: maxBytes, log: log}
}

// Extract handles POST /api/v1/extract
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	doc, status, msg := readUpload(w, r, h.maxBytes)
	if doc == nil {
		middleware.WriteError(w, status, msg)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := logger.FromContext(ctx)
	log.Info().
		Str("document_id", doc.ID).
		Str("filename", doc.Filename).
		Int("bytes", len(doc.Data)).
		Msg("Starting statement extraction stream")

	em := stream.NewEmitter(ctx, streamBufferSize)
	go stream.Produce(ctx, em, h.proc, doc)

	stream.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := stream.WriteSSE(w, em.Events()); err != nil {
		log.Warn().Err(err).Str("document_id", doc.ID).Msg("Stream write failed, cancelling extraction")
		cancel()
		for range em.Events() {
		}
	}
}

// readUpload reads the multipart "file" field into a document. On failure
// it returns a nil document with the status and message to send.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*pipeline.Document, int, string) {
	if maxBytes > 0 {
		if r.ContentLength > maxBytes {
			return nil, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", maxBytes)
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds %d bytes", maxBytes)
		}
		return nil, http.StatusBadRequest, "Invalid multipart upload"
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(formField)
	if err != nil {
		return nil, http.StatusBadRequest, "file is required"
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusBadRequest, "Failed to read upload"
	}

	doc, err := pipeline.NewDocument(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, http.StatusBadRequest, stream.Diagnostic(err)
	}
	return doc, http.StatusOK, ""
}
