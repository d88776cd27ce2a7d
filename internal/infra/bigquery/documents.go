package bigquery

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-splitter/internal/pipeline"
)

const documentTypeStatement = "BANK_STATEMENT"

type DocumentRow struct {
	DocumentID string `bigquery:"document_id"` // REQUIRED
	GCSURI     string `bigquery:"gcs_uri"`     // NULLABLE

	DocumentType string `bigquery:"document_type"` // REQUIRED
	InputKind    string `bigquery:"input_kind"`    // REQUIRED

	UploadTS time.Time `bigquery:"upload_ts"` // REQUIRED

	OriginalFilename string `bigquery:"original_filename"` // NULLABLE
	FileMimeType     string `bigquery:"file_mime_type"`    // NULLABLE
	SizeBytes        int64  `bigquery:"size_bytes"`        // REQUIRED

	ChecksumSHA256 string `bigquery:"checksum_sha256"` // NULLABLE

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE
}

func newDocumentRow(doc *pipeline.Document) *DocumentRow {
	sum := sha256.Sum256(doc.Data)
	return &DocumentRow{
		DocumentID:       doc.ID,
		GCSURI:           doc.SourceURI,
		DocumentType:     documentTypeStatement,
		InputKind:        string(doc.Kind),
		UploadTS:         time.Now(),
		OriginalFilename: doc.Filename,
		FileMimeType:     doc.MIMEType,
		SizeBytes:        int64(len(doc.Data)),
		ChecksumSHA256:   hex.EncodeToString(sum[:]),
	}
}
