package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoiceflow/internal/domain"
)

// MockReportNotifier is a mock implementation of port.ReportNotifier.
type MockReportNotifier struct {
	mock.Mock
}

func (m *MockReportNotifier) NotifyPipelineResult(ctx context.Context, result *domain.PipelineResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}
