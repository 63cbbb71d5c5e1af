package port

import (
	"context"

	"invoiceflow/internal/domain"
)

// ReportNotifier delivers a summary of a finished pipeline run.
type ReportNotifier interface {
	NotifyPipelineResult(ctx context.Context, result *domain.PipelineResult) error
}
