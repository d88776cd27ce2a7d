package bigquery

import (
	"context"
	"fmt"
)

// InsertDocument inserts a single DocumentRow into the documents table.
func (r *Repository) InsertDocument(ctx context.Context, row *DocumentRow) error {
	if err := r.table(documentsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertDocument: inserting row: %w", err)
	}
	return nil
}
