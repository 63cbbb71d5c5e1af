package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/config"
	"invoiceflow/internal/domain"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{}, nil
}

func sampleResult() *domain.PipelineResult {
	return &domain.PipelineResult{
		CorrelationID: "run-1",
		Extraction: domain.ExtractionResult{
			Classification: domain.Classification{DocumentType: "invoice"},
			Model:          "gemini-2.0-flash",
		},
		Validation: &domain.ValidationReport{
			Status:            domain.ValidationStatusFailed,
			CompletenessScore: 0.8,
			Issues:            []string{"due date precedes issue date"},
		},
		Confidence: &domain.ConfidenceReport{Overall: 0.91, Grade: domain.GradeGood},
		Aggregate: &domain.AggregateResult{
			SuccessCount: 1,
			FailureCount: 1,
			Outcomes: []domain.EvaluationOutcome{
				{Status: domain.OutcomeSuccess, EvaluatorName: "compliance", ElapsedMs: 12},
				{Status: domain.OutcomeFailure, EvaluatorName: "fraud_detection", ErrorKind: domain.ErrorKindInvocation, Message: "deadline exceeded"},
			},
		},
		TotalElapsedMs: 40,
	}
}

func TestBuildTextSummary(t *testing.T) {
	text := BuildTextSummary(sampleResult())

	assert.Contains(t, text, "Correlation: run-1")
	assert.Contains(t, text, "Validation: FAILED (completeness 80%)")
	assert.Contains(t, text, "  - due date precedes issue date")
	assert.Contains(t, text, "Confidence: 0.91 (GOOD)")
	assert.Contains(t, text, "  - compliance: ok (12ms)")
	assert.Contains(t, text, "  - fraud_detection: InvocationError deadline exceeded")
}

func TestBuildSubject_NoValidation(t *testing.T) {
	assert.Equal(t, "[invoiceflow] run-2: no validation", BuildSubject(&domain.PipelineResult{CorrelationID: "run-2"}))
}

func TestSESNotifier_Send(t *testing.T) {
	fake := &fakeSES{}
	n := newSESNotifier(fake, &config.NotifyConfig{
		FromAddress: "noreply@example.com",
		FromName:    "invoiceflow",
		Recipients:  []string{"ops@example.com"},
	})

	require.NoError(t, n.NotifyPipelineResult(context.Background(), sampleResult()))
	require.NotNil(t, fake.input)
	assert.Equal(t, "invoiceflow <noreply@example.com>", *fake.input.FromEmailAddress)
	assert.Equal(t, []string{"ops@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "[invoiceflow] run-1: FAILED", *fake.input.Content.Simple.Subject.Data)
}

func TestSESNotifier_SendError(t *testing.T) {
	fake := &fakeSES{err: errors.New("throttled")}
	n := newSESNotifier(fake, &config.NotifyConfig{Recipients: []string{"ops@example.com"}})

	err := n.NotifyPipelineResult(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestNewSESNotifier_RequiresRecipients(t *testing.T) {
	_, err := NewSESNotifier(&config.NotifyConfig{Region: "us-east-1"})
	assert.Error(t, err)
}
