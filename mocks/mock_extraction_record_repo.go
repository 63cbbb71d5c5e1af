package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invoiceflow/internal/domain"
)

// MockExtractionRecordRepo is a mock implementation of port.ExtractionRecordRepository.
type MockExtractionRecordRepo struct {
	mock.Mock
}

func (m *MockExtractionRecordRepo) Create(ctx context.Context, record *domain.ExtractionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockExtractionRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRecord), args.Error(1)
}
