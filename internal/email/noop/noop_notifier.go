package noop

import (
	"context"
	"log"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/email/ses"
	"invoiceflow/internal/port"
)

type noopNotifier struct{}

// NewNoopNotifier creates a ReportNotifier that logs run summaries to stdout.
func NewNoopNotifier() port.ReportNotifier {
	return &noopNotifier{}
}

func (n *noopNotifier) NotifyPipelineResult(_ context.Context, result *domain.PipelineResult) error {
	log.Printf("[NOOP NOTIFY] %s\n%s", ses.BuildSubject(result), ses.BuildTextSummary(result))
	return nil
}
