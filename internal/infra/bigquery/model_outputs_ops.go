package bigquery

import (
	"context"
	"fmt"
)

// InsertModelOutput inserts a single ModelOutputRow into the model_outputs table.
func (r *Repository) InsertModelOutput(ctx context.Context, row *ModelOutputRow) error {
	if err := r.table(modelOutputsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertModelOutput: inserting row: %w", err)
	}
	return nil
}
