package pipeline

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// InputKind selects which path a document takes through the pipeline.
type InputKind string

const (
	// KindPDF documents are converted to text and processed in windows.
	KindPDF InputKind = "pdf"
	// KindImage documents are extracted in a single vision call.
	KindImage InputKind = "image"
	// KindText documents are already text and skip conversion.
	KindText InputKind = "text"
)

var (
	// ErrUnsupportedInput is returned for files the pipeline cannot process.
	ErrUnsupportedInput = errors.New("unsupported input type")

	// ErrConversion marks a failed document to text conversion.
	ErrConversion = errors.New("document conversion failed")

	// ErrExtraction marks a failed single shot (image) extraction.
	ErrExtraction = errors.New("extraction failed")
)

var extensionTypes = map[string]string{
	".pdf":      "application/pdf",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".png":      "image/png",
	".webp":     "image/webp",
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
}

var mimeKinds = map[string]InputKind{
	"application/pdf": KindPDF,
	"image/jpeg":      KindImage,
	"image/png":       KindImage,
	"image/webp":      KindImage,
	"text/plain":      KindText,
	"text/markdown":   KindText,
}

// Document is one uploaded statement.
type Document struct {
	ID       string
	Filename string
	MIMEType string
	Kind     InputKind
	Data     []byte

	// SourceURI is set when the document was fetched from object storage.
	SourceURI string
}

// DetectKind resolves the input kind and canonical MIME type from the file
// name, falling back to the declared content type.
func DetectKind(filename, contentType string) (InputKind, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := extensionTypes[ext]; ok {
		return mimeKinds[mt], mt, nil
	}

	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if mt == "image/jpg" {
				mt = "image/jpeg"
			}
			if kind, ok := mimeKinds[mt]; ok {
				return kind, mt, nil
			}
		}
	}

	return "", "", fmt.Errorf("DetectKind: %q (%s): %w", filename, contentType, ErrUnsupportedInput)
}

// NewDocument validates the input type and assigns a document id.
func NewDocument(filename, contentType string, data []byte) (*Document, error) {
	kind, mt, err := DetectKind(filename, contentType)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("NewDocument: %q is empty: %w", filename, ErrUnsupportedInput)
	}

	return &Document{
		ID:       uuid.NewString(),
		Filename: filepath.Base(filename),
		MIMEType: mt,
		Kind:     kind,
		Data:     data,
	}, nil
}
