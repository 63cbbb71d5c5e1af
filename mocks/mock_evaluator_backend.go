package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"invoiceflow/internal/port"
)

// MockEvaluatorBackend is a mock implementation of port.EvaluatorBackend.
type MockEvaluatorBackend struct {
	mock.Mock
}

func (m *MockEvaluatorBackend) Invoke(ctx context.Context, input port.InvokeInput) (port.ChunkStream, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// a fresh stream per call when the expectation returns a constructor
	if fn, ok := args.Get(0).(func(context.Context, port.InvokeInput) port.ChunkStream); ok {
		return fn(ctx, input), args.Error(1)
	}
	return args.Get(0).(port.ChunkStream), args.Error(1)
}
