package sqlstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/db"
	"invoiceflow/internal/config"
	"invoiceflow/internal/domain"
	"invoiceflow/internal/repository/sqlstore"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := sqlstore.NewDB(&config.DBConfig{
		Driver: sqlstore.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "records.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	schema, err := db.Migrations.ReadFile(db.Dir(sqlstore.DriverSQLite) + "/000001_create_extraction_records.up.sql")
	require.NoError(t, err)
	_, err = conn.Exec(string(schema))
	require.NoError(t, err)
	return conn
}

func TestExtractionRecordRepo_CreateAndGet(t *testing.T) {
	repo := sqlstore.NewExtractionRecordRepo(openTestDB(t))
	ctx := context.Background()

	rec := &domain.ExtractionRecord{
		ID:                uuid.New(),
		CorrelationID:     "corr-1",
		SourceReference:   "s3://invoices/inv.pdf",
		DocumentType:      "pdf_invoice",
		Model:             "gemini-2.5-flash",
		StructuredData:    json.RawMessage(`{"fields":{"invoice_number":{"name":"invoice_number","value":"INV-1","confidence":0.9}}}`),
		OverallConfidence: 0.9,
		CreatedAt:         time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "corr-1", got.CorrelationID)
	assert.Equal(t, "pdf_invoice", got.DocumentType)
	assert.InDelta(t, 0.9, got.OverallConfidence, 1e-9)
	assert.JSONEq(t, string(rec.StructuredData), string(got.StructuredData))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestExtractionRecordRepo_CreateDefaultsTimestamp(t *testing.T) {
	repo := sqlstore.NewExtractionRecordRepo(openTestDB(t))
	rec := &domain.ExtractionRecord{ID: uuid.New(), SourceReference: "inv.png", StructuredData: json.RawMessage(`{}`)}

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestExtractionRecordRepo_DuplicateID(t *testing.T) {
	repo := sqlstore.NewExtractionRecordRepo(openTestDB(t))
	rec := &domain.ExtractionRecord{ID: uuid.New(), SourceReference: "inv.png", StructuredData: json.RawMessage(`{}`)}

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.Error(t, repo.Create(context.Background(), rec))
}

func TestExtractionRecordRepo_NotFound(t *testing.T) {
	repo := sqlstore.NewExtractionRecordRepo(openTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := sqlstore.NewDB(&config.DBConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported db driver")
}
