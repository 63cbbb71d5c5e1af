package action

import (
	"context"
	"time"

	"invoiceflow/internal/service"
)

// Capability groups and functions exposed through the dispatcher.
const (
	GroupDocumentProcessing = "document-processing"
	GroupOrchestration      = "orchestration"
	GroupPipeline           = "pipeline"

	FnExtract         = "extract"
	FnClassify        = "classify"
	FnValidate        = "validate"
	FnScore           = "score"
	FnRunParallel     = "run_parallel"
	FnInvokeEvaluator = "invoke_evaluator"
	FnProcess         = "process"
)

// Parameter names.
const (
	ParamSourceReference = "source_reference"
	ParamContentType     = "content_type"
	ParamSizeBytes       = "size_bytes"
	ParamNameHint        = "name_hint"
	ParamDocument        = "document"
	ParamEvaluators      = "evaluators"
	ParamEvaluator       = "evaluator"
	ParamCorrelationID   = "correlation_id"
	ParamTimeoutMs       = "timeout_ms"
)

// NewPipelineDispatcher registers every pipeline function against svc.
func NewPipelineDispatcher(svc service.PipelineService) *Dispatcher {
	d := NewDispatcher()
	f := &functions{svc: svc}
	d.Register(GroupDocumentProcessing, FnExtract, f.extract)
	d.Register(GroupDocumentProcessing, FnClassify, f.classify)
	d.Register(GroupDocumentProcessing, FnValidate, f.validate)
	d.Register(GroupDocumentProcessing, FnScore, f.score)
	d.Register(GroupOrchestration, FnRunParallel, f.runParallel)
	d.Register(GroupOrchestration, FnInvokeEvaluator, f.invokeEvaluator)
	d.Register(GroupPipeline, FnProcess, f.process)
	return d
}

type functions struct {
	svc service.PipelineService
}

func (f *functions) extract(ctx context.Context, p Params) (any, error) {
	ref, err := p.Required(ParamSourceReference)
	if err != nil {
		return nil, err
	}
	size, err := p.Int64(ParamSizeBytes)
	if err != nil {
		return nil, err
	}
	return f.svc.Extract(ctx, &service.ExtractInput{
		SourceReference: ref,
		ContentType:     p.Optional(ParamContentType),
		SizeBytes:       size,
		CorrelationID:   p.Optional(ParamCorrelationID),
	})
}

func (f *functions) classify(ctx context.Context, p Params) (any, error) {
	ref, err := p.Required(ParamSourceReference)
	if err != nil {
		return nil, err
	}
	size, err := p.Int64(ParamSizeBytes)
	if err != nil {
		return nil, err
	}
	return f.svc.Classify(ctx, &service.ClassifyInput{
		SourceReference: ref,
		ContentType:     p.Optional(ParamContentType),
		SizeBytes:       size,
		NameHint:        p.Optional(ParamNameHint),
	}), nil
}

func (f *functions) validate(_ context.Context, p Params) (any, error) {
	doc, err := p.Document(ParamDocument)
	if err != nil {
		return nil, err
	}
	return f.svc.Validate(doc), nil
}

func (f *functions) score(_ context.Context, p Params) (any, error) {
	doc, err := p.Document(ParamDocument)
	if err != nil {
		return nil, err
	}
	return f.svc.Score(doc), nil
}

func (f *functions) runParallel(ctx context.Context, p Params) (any, error) {
	doc, err := p.Document(ParamDocument)
	if err != nil {
		return nil, err
	}
	if _, err := p.Required(ParamEvaluators); err != nil {
		return nil, err
	}
	names, err := p.List(ParamEvaluators)
	if err != nil {
		return nil, err
	}
	return f.svc.RunParallel(ctx, doc, names, p.Optional(ParamCorrelationID)), nil
}

func (f *functions) invokeEvaluator(ctx context.Context, p Params) (any, error) {
	name, err := p.Required(ParamEvaluator)
	if err != nil {
		return nil, err
	}
	doc, err := p.Document(ParamDocument)
	if err != nil {
		return nil, err
	}
	timeoutMs, err := p.Int64(ParamTimeoutMs)
	if err != nil {
		return nil, err
	}
	return f.svc.InvokeEvaluator(ctx, name, doc, p.Optional(ParamCorrelationID), time.Duration(timeoutMs)*time.Millisecond), nil
}

func (f *functions) process(ctx context.Context, p Params) (any, error) {
	ref, err := p.Required(ParamSourceReference)
	if err != nil {
		return nil, err
	}
	names, err := p.List(ParamEvaluators)
	if err != nil {
		return nil, err
	}
	size, err := p.Int64(ParamSizeBytes)
	if err != nil {
		return nil, err
	}
	return f.svc.Run(ctx, &service.ProcessInput{
		SourceReference: ref,
		ContentType:     p.Optional(ParamContentType),
		SizeBytes:       size,
		Evaluators:      names,
		CorrelationID:   p.Optional(ParamCorrelationID),
	})
}
