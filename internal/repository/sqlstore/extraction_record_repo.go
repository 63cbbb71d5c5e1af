package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/port"
)

type extractionRecordRepo struct {
	db *sqlx.DB
}

// NewExtractionRecordRepo creates a SQL-backed ExtractionRecordRepository.
// Queries are written with ? placeholders and rebound for the driver.
func NewExtractionRecordRepo(db *sqlx.DB) port.ExtractionRecordRepository {
	return &extractionRecordRepo{db: db}
}

func (r *extractionRecordRepo) Create(ctx context.Context, rec *domain.ExtractionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO extraction_records
		(id, correlation_id, source_reference, document_type, model,
		 structured_data, overall_confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CorrelationID, rec.SourceReference, rec.DocumentType, rec.Model,
		[]byte(rec.StructuredData), rec.OverallConfidence, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("extractionRecordRepo.Create: %w", err)
	}
	return nil
}

// recordRow scans structured_data as bytes so JSONB (text) and BLOB
// columns decode the same way.
type recordRow struct {
	ID                uuid.UUID `db:"id"`
	CorrelationID     string    `db:"correlation_id"`
	SourceReference   string    `db:"source_reference"`
	DocumentType      string    `db:"document_type"`
	Model             string    `db:"model"`
	StructuredData    []byte    `db:"structured_data"`
	OverallConfidence float64   `db:"overall_confidence"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r *extractionRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(
		`SELECT id, correlation_id, source_reference, document_type, model,
		        structured_data, overall_confidence, created_at
		 FROM extraction_records WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("extraction %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("extractionRecordRepo.GetByID: %w", err)
	}
	return &domain.ExtractionRecord{
		ID:                row.ID,
		CorrelationID:     row.CorrelationID,
		SourceReference:   row.SourceReference,
		DocumentType:      row.DocumentType,
		Model:             row.Model,
		StructuredData:    row.StructuredData,
		OverallConfidence: row.OverallConfidence,
		CreatedAt:         row.CreatedAt,
	}, nil
}
