package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/dvloznov/statement-splitter/internal/domain"
	"github.com/dvloznov/statement-splitter/internal/export"
	"github.com/dvloznov/statement-splitter/internal/gcs"
	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

const archivePrefix = "statements"

// Archiver keeps a copy of every processed statement and its QBO and CSV
// outputs under statements/<yyyy-mm-dd>/<document_id>/.
type Archiver struct {
	store  gcs.ObjectStore
	bucket string
	now    func() time.Time
}

// NewArchiver creates an archiver writing to bucket.
func NewArchiver(store gcs.ObjectStore, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket, now: time.Now}
}

// Archive uploads the source document and the rendered outputs, returning
// the gs:// URIs written. A document already in storage is not uploaded again.
func (a *Archiver) Archive(ctx context.Context, doc *pipeline.Document, account *domain.CanonicalAccount) ([]string, error) {
	dir := path.Join(archivePrefix, a.now().UTC().Format("2006-01-02"), doc.ID)
	var uris []string

	put := func(name string, data []byte, contentType string) error {
		object := path.Join(dir, name)
		if err := a.store.Upload(ctx, a.bucket, object, bytes.NewReader(data), contentType); err != nil {
			return fmt.Errorf("Archive: uploading %s: %w", name, err)
		}
		uris = append(uris, fmt.Sprintf("gs://%s/%s", a.bucket, object))
		return nil
	}

	if doc.SourceURI == "" {
		if err := put(doc.Filename, doc.Data, doc.MIMEType); err != nil {
			return uris, err
		}
	}

	if account == nil {
		return uris, nil
	}

	for _, format := range []string{export.FormatQBO, export.FormatCSV} {
		data, err := export.Render(account, format)
		if err != nil {
			return uris, fmt.Errorf("Archive: rendering %s: %w", format, err)
		}
		if err := put(export.SuggestedFilename(account, format), data, export.ContentTypes[format]); err != nil {
			return uris, err
		}
	}

	return uris, nil
}

var _ pipeline.Archiver = (*Archiver)(nil)
