package action_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/action"
	"invoiceflow/internal/domain"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/service"
	"invoiceflow/mocks"
)

const docJSON = `{"fields":{"invoice_number":{"name":"invoice_number","value":"INV-1","confidence":0.9}},"line_items":[],"source_reference":"inv.pdf","overall_confidence":0.9}`

func invoke(d *action.Dispatcher, group, fn string, params ...action.Parameter) action.Response {
	return d.Invoke(context.Background(), action.Request{CapabilityGroup: group, Function: fn, Parameters: params})
}

func param(name, value string) action.Parameter {
	return action.Parameter{Name: name, Type: "string", Value: value}
}

func TestNewPipelineDispatcher_RegistersEveryFunction(t *testing.T) {
	d := action.NewPipelineDispatcher(new(mocks.MockPipelineService))
	assert.ElementsMatch(t, []string{
		"document-processing/extract",
		"document-processing/classify",
		"document-processing/validate",
		"document-processing/score",
		"orchestration/run_parallel",
		"orchestration/invoke_evaluator",
		"pipeline/process",
	}, d.Functions())
}

func TestExtract(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	svc.On("Extract", mock.Anything, &service.ExtractInput{SourceReference: "s3://b/inv.pdf", SizeBytes: 10}).
		Return(&domain.ExtractionResult{Model: "m", Classification: domain.Classification{DocumentType: "pdf_invoice"}}, nil)

	resp := invoke(action.NewPipelineDispatcher(svc), action.GroupDocumentProcessing, action.FnExtract,
		param(action.ParamSourceReference, "s3://b/inv.pdf"), param(action.ParamSizeBytes, "10"))

	var res domain.ExtractionResult
	require.NoError(t, action.DecodeResult(resp.Result, &res))
	assert.Equal(t, "m", res.Model)
	assert.Equal(t, "pdf_invoice", res.Classification.DocumentType)
}

func TestExtract_MissingSourceReference(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	resp := invoke(action.NewPipelineDispatcher(svc), action.GroupDocumentProcessing, action.FnExtract)

	f, ok := action.DecodeFailure(resp.Result)
	require.True(t, ok)
	assert.Equal(t, action.KindMissingParameter, f.ErrorKind)
	svc.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestExtract_BackendFailure(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	svc.On("Extract", mock.Anything, mock.Anything).
		Return(nil, &extraction.ExtractionError{Reason: "backend call", Err: errors.New("503")})

	resp := invoke(action.NewPipelineDispatcher(svc), action.GroupDocumentProcessing, action.FnExtract,
		param(action.ParamSourceReference, "inv.pdf"))

	f, ok := action.DecodeFailure(resp.Result)
	require.True(t, ok)
	assert.Equal(t, action.KindExtractionFailure, f.ErrorKind)
	assert.Contains(t, f.Error, "503")
}

func TestClassify(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	svc.On("Classify", mock.Anything, &service.ClassifyInput{SourceReference: "a.png", ContentType: "image/png", NameHint: "multi.png"}).
		Return(domain.Classification{DocumentType: "image_invoice", Confidence: 0.85, FormatHints: []string{"multi_page"}})

	resp := invoke(action.NewPipelineDispatcher(svc), action.GroupDocumentProcessing, action.FnClassify,
		param(action.ParamSourceReference, "a.png"), param(action.ParamContentType, "image/png"), param(action.ParamNameHint, "multi.png"))

	var c domain.Classification
	require.NoError(t, action.DecodeResult(resp.Result, &c))
	assert.Equal(t, "image_invoice", c.DocumentType)
	assert.Equal(t, []string{"multi_page"}, c.FormatHints)
}

func TestValidateAndScore(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	svc.On("Validate", mock.AnythingOfType("*domain.StructuredDocument")).
		Return(&domain.ValidationReport{Status: domain.ValidationStatusFailed, CompletenessScore: 0.2})
	svc.On("Score", mock.AnythingOfType("*domain.StructuredDocument")).
		Return(&domain.ConfidenceReport{Overall: 0.9, Grade: domain.GradeGood})
	d := action.NewPipelineDispatcher(svc)

	var rep domain.ValidationReport
	require.NoError(t, action.DecodeResult(invoke(d, action.GroupDocumentProcessing, action.FnValidate, param(action.ParamDocument, docJSON)).Result, &rep))
	assert.Equal(t, domain.ValidationStatusFailed, rep.Status)

	var conf domain.ConfidenceReport
	require.NoError(t, action.DecodeResult(invoke(d, action.GroupDocumentProcessing, action.FnScore, param(action.ParamDocument, docJSON)).Result, &conf))
	assert.Equal(t, domain.GradeGood, conf.Grade)

	f, ok := action.DecodeFailure(invoke(d, action.GroupDocumentProcessing, action.FnValidate, param(action.ParamDocument, "{oops")).Result)
	require.True(t, ok)
	assert.Equal(t, action.KindMalformedPayload, f.ErrorKind)
}

func TestRunParallel(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	agg := &domain.AggregateResult{CorrelationID: "run-1", Requested: []string{"compliance", "validation"}, SuccessCount: 2, CompletionRate: 1}
	svc.On("RunParallel", mock.Anything, mock.MatchedBy(func(doc *domain.StructuredDocument) bool {
		return doc.Fields["invoice_number"].Value == "INV-1"
	}), []string{"compliance", "validation"}, "run-1").Return(agg)
	d := action.NewPipelineDispatcher(svc)

	resp := invoke(d, action.GroupOrchestration, action.FnRunParallel,
		param(action.ParamDocument, docJSON), param(action.ParamEvaluators, `["compliance","validation"]`), param(action.ParamCorrelationID, "run-1"))
	decoded, err := action.DecodeAggregate(resp.Result)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.SuccessCount)

	f, ok := action.DecodeFailure(invoke(d, action.GroupOrchestration, action.FnRunParallel, param(action.ParamDocument, docJSON)).Result)
	require.True(t, ok)
	assert.Equal(t, action.KindMissingParameter, f.ErrorKind)
}

func TestInvokeEvaluator(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	svc.On("InvokeEvaluator", mock.Anything, "compliance", mock.Anything, "", 250*time.Millisecond).
		Return(domain.EvaluationOutcome{Status: domain.OutcomeSuccess, EvaluatorName: "compliance"})

	resp := invoke(action.NewPipelineDispatcher(svc), action.GroupOrchestration, action.FnInvokeEvaluator,
		param(action.ParamEvaluator, "compliance"), param(action.ParamDocument, docJSON), param(action.ParamTimeoutMs, "250"))

	var out domain.EvaluationOutcome
	require.NoError(t, action.DecodeResult(resp.Result, &out))
	assert.True(t, out.Succeeded())
}

func TestProcess(t *testing.T) {
	svc := new(mocks.MockPipelineService)
	svc.On("Run", mock.Anything, &service.ProcessInput{SourceReference: "inv.pdf", Evaluators: []string{"compliance"}}).
		Return(&domain.PipelineResult{CorrelationID: "c"}, nil)

	resp := invoke(action.NewPipelineDispatcher(svc), action.GroupPipeline, action.FnProcess,
		param(action.ParamSourceReference, "inv.pdf"), param(action.ParamEvaluators, "compliance"))

	var res domain.PipelineResult
	require.NoError(t, action.DecodeResult(resp.Result, &res))
	assert.Equal(t, "c", res.CorrelationID)
}
