// Package orchestrator fans a validated document out to specialist
// evaluators and merges their outcomes into one AggregateResult.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/evaluator"
)

// Session attribute keys sent with every evaluator call.
const (
	AttrCorrelationID = "correlation_id"
	AttrEvaluator     = "evaluator"
)

// Orchestrator runs evaluator calls concurrently. Calls are independent: a
// slow or failing evaluator never cancels its siblings.
type Orchestrator struct {
	invoker        *evaluator.Invoker
	timeout        time.Duration
	maxConcurrency int
}

// New creates an Orchestrator. timeout bounds each evaluator call; a
// maxConcurrency of zero or less means no limit.
func New(invoker *evaluator.Invoker, timeout time.Duration, maxConcurrency int) *Orchestrator {
	return &Orchestrator{invoker: invoker, timeout: timeout, maxConcurrency: maxConcurrency}
}

// CorrelationID derives the per-evaluator correlation id.
func CorrelationID(baseID, name string) string {
	return baseID + "-" + name
}

// NewRequest builds the request for one evaluator of the run identified by baseID.
func NewRequest(payload json.RawMessage, name, baseID string) domain.EvaluationRequest {
	return domain.EvaluationRequest{
		EvaluatorName: name,
		CorrelationID: CorrelationID(baseID, name),
		Payload:       payload,
		SessionAttributes: map[string]string{
			AttrCorrelationID: baseID,
			AttrEvaluator:     name,
		},
	}
}

// RunParallel invokes every requested evaluator known to the catalog and
// waits for all of them. Unknown and unsupported names are skipped but still
// count toward the completion-rate denominator. Outcomes follow launch order.
func (o *Orchestrator) RunParallel(ctx context.Context, doc *domain.StructuredDocument, requested []string, baseID string) *domain.AggregateResult {
	if baseID == "" {
		baseID = uuid.NewString()
	}
	result := &domain.AggregateResult{
		CorrelationID: baseID,
		Requested:     append([]string{}, requested...),
		Outcomes:      []domain.EvaluationOutcome{},
	}

	catalog := o.invoker.Catalog()
	var names []string
	for _, name := range requested {
		if _, err := catalog.Resolve(name); err != nil {
			log.Printf("orchestrator.Orchestrator.RunParallel: [%s] skipping %v", baseID, err)
			continue
		}
		names = append(names, name)
	}

	start := time.Now()
	payload, err := json.Marshal(doc)
	if err != nil {
		msg := fmt.Sprintf("encoding document: %v", err)
		for _, name := range names {
			result.Outcomes = append(result.Outcomes, domain.NewFailureOutcome(name, domain.ErrorKindInvocation, msg, 0))
		}
	} else {
		result.Outcomes = o.fanOut(ctx, payload, names, baseID)
	}
	result.TotalElapsedMs = time.Since(start).Milliseconds()

	for _, out := range result.Outcomes {
		if out.Succeeded() {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}
	if len(requested) > 0 {
		result.CompletionRate = float64(result.SuccessCount) / float64(len(requested))
	}

	log.Printf("orchestrator.Orchestrator.RunParallel: [%s] %d requested, %d launched, %d succeeded, %d failed in %dms",
		baseID, len(requested), len(names), result.SuccessCount, result.FailureCount, result.TotalElapsedMs)
	return result
}

// fanOut settles every call into its own slot; tasks never return an error,
// so the group never cancels siblings.
func (o *Orchestrator) fanOut(ctx context.Context, payload json.RawMessage, names []string, baseID string) []domain.EvaluationOutcome {
	outcomes := make([]domain.EvaluationOutcome, len(names))
	g := new(errgroup.Group)
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}
	for i, name := range names {
		req := NewRequest(payload, name, baseID)
		g.Go(func() error {
			outcomes[i] = o.invoker.Invoke(ctx, name, req, o.timeout)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
