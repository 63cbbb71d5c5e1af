package port

import (
	"context"

	"github.com/google/uuid"

	"invoiceflow/internal/domain"
)

// ExtractionRecordRepository persists structured extraction results.
type ExtractionRecordRepository interface {
	Create(ctx context.Context, record *domain.ExtractionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
}
