package storage

import (
	"context"

	"positionTools/internal/model"
)

// Storage defines a sink for operation records.
type Storage interface {
	PutOperationBatch(ctx context.Context, records []model.OperationRecord) error
}
