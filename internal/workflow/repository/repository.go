package repository

import (
	"context"

	"equiplink/internal/db"
	"equiplink/internal/workflow"
)

// Repository persists transition history. Insert and read only; rows are
// never updated or deleted.
type Repository interface {
	// AppendTx inserts the record using the caller's querier, so the record
	// commits or rolls back with the status write it describes.
	AppendTx(ctx context.Context, q db.DBTX, rec *workflow.HistoryRecord) error
	ListByEntity(ctx context.Context, kind workflow.Kind, entityID string) ([]*workflow.HistoryRecord, error)
}
