package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/service"
)

// MockPipelineService is a mock implementation of service.PipelineService.
type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) Classify(ctx context.Context, input *service.ClassifyInput) domain.Classification {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.Classification)
}

func (m *MockPipelineService) Extract(ctx context.Context, input *service.ExtractInput) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

func (m *MockPipelineService) Validate(doc *domain.StructuredDocument) *domain.ValidationReport {
	args := m.Called(doc)
	return args.Get(0).(*domain.ValidationReport)
}

func (m *MockPipelineService) Score(doc *domain.StructuredDocument) *domain.ConfidenceReport {
	args := m.Called(doc)
	return args.Get(0).(*domain.ConfidenceReport)
}

func (m *MockPipelineService) RunParallel(ctx context.Context, doc *domain.StructuredDocument, evaluators []string, correlationID string) *domain.AggregateResult {
	args := m.Called(ctx, doc, evaluators, correlationID)
	return args.Get(0).(*domain.AggregateResult)
}

func (m *MockPipelineService) InvokeEvaluator(ctx context.Context, name string, doc *domain.StructuredDocument, correlationID string, timeout time.Duration) domain.EvaluationOutcome {
	args := m.Called(ctx, name, doc, correlationID, timeout)
	return args.Get(0).(domain.EvaluationOutcome)
}

func (m *MockPipelineService) Run(ctx context.Context, input *service.ProcessInput) (*domain.PipelineResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PipelineResult), args.Error(1)
}

func (m *MockPipelineService) GetExtraction(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRecord), args.Error(1)
}
