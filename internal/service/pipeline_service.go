package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"invoiceflow/internal/classifier"
	"invoiceflow/internal/domain"
	"invoiceflow/internal/evaluator"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/orchestrator"
	"invoiceflow/internal/port"
	"invoiceflow/internal/scoring"
	"invoiceflow/internal/validator"
)

// ClassifyInput is the DTO for classifying a stored document.
type ClassifyInput struct {
	SourceReference string
	ContentType     string
	SizeBytes       int64
	NameHint        string
}

// ExtractInput is the DTO for extracting a stored document.
type ExtractInput struct {
	SourceReference string
	ContentType     string
	SizeBytes       int64
	CorrelationID   string
}

// ProcessInput is the DTO for one end-to-end pipeline run.
type ProcessInput struct {
	SourceReference string
	ContentType     string
	SizeBytes       int64
	Evaluators      []string
	CorrelationID   string
}

// PipelineConfig holds the pipeline-level settings.
type PipelineConfig struct {
	DefaultBucket     string
	DefaultEvaluators []string
	EvaluatorTimeout  time.Duration
}

// PipelineService defines the extraction, validation and orchestration contract.
type PipelineService interface {
	Classify(ctx context.Context, input *ClassifyInput) domain.Classification
	Extract(ctx context.Context, input *ExtractInput) (*domain.ExtractionResult, error)
	Validate(doc *domain.StructuredDocument) *domain.ValidationReport
	Score(doc *domain.StructuredDocument) *domain.ConfidenceReport
	RunParallel(ctx context.Context, doc *domain.StructuredDocument, evaluators []string, correlationID string) *domain.AggregateResult
	InvokeEvaluator(ctx context.Context, name string, doc *domain.StructuredDocument, correlationID string, timeout time.Duration) domain.EvaluationOutcome
	Run(ctx context.Context, input *ProcessInput) (*domain.PipelineResult, error)
	GetExtraction(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error)
}

type pipelineService struct {
	storage      port.ObjectStorage
	records      port.ExtractionRecordRepository
	notifier     port.ReportNotifier
	classifier   *classifier.Classifier
	extractor    *extraction.Adapter
	validator    *validator.Validator
	scorer       *scoring.Scorer
	invoker      *evaluator.Invoker
	orchestrator *orchestrator.Orchestrator
	cfg          PipelineConfig
}

// NewPipelineService creates a new PipelineService implementation.
func NewPipelineService(
	storage port.ObjectStorage,
	records port.ExtractionRecordRepository,
	notifier port.ReportNotifier,
	docClassifier *classifier.Classifier,
	extractor *extraction.Adapter,
	docValidator *validator.Validator,
	scorer *scoring.Scorer,
	invoker *evaluator.Invoker,
	orch *orchestrator.Orchestrator,
	cfg PipelineConfig,
) PipelineService {
	return &pipelineService{
		storage:      storage,
		records:      records,
		notifier:     notifier,
		classifier:   docClassifier,
		extractor:    extractor,
		validator:    docValidator,
		scorer:       scorer,
		invoker:      invoker,
		orchestrator: orch,
		cfg:          cfg,
	}
}

func (s *pipelineService) Classify(ctx context.Context, input *ClassifyInput) domain.Classification {
	meta := domain.DocumentMetadata{
		ContentType: input.ContentType,
		SizeBytes:   input.SizeBytes,
		NameHint:    input.NameHint,
	}
	if meta.ContentType == "" || meta.SizeBytes == 0 {
		s.fillFromStat(ctx, input.SourceReference, &meta)
	}
	return s.classifier.Classify(input.SourceReference, meta)
}

// fillFromStat completes missing metadata from object storage. Lookup
// failures leave the metadata as is; the classifier treats gaps as unknown.
func (s *pipelineService) fillFromStat(ctx context.Context, sourceRef string, meta *domain.DocumentMetadata) {
	bucket, key, err := extraction.ParseSourceReference(sourceRef, s.cfg.DefaultBucket)
	if err != nil {
		return
	}
	info, err := s.storage.Stat(ctx, bucket, key)
	if err != nil {
		log.Printf("pipelineService.Classify: stat %s failed: %v", sourceRef, err)
		return
	}
	if meta.ContentType == "" {
		meta.ContentType = info.ContentType
	}
	if meta.SizeBytes == 0 {
		meta.SizeBytes = info.Size
	}
}

func (s *pipelineService) Extract(ctx context.Context, input *ExtractInput) (*domain.ExtractionResult, error) {
	if input.SourceReference == "" {
		return nil, fmt.Errorf("source_reference: %w", domain.ErrMissingParameter)
	}
	bucket, key, err := extraction.ParseSourceReference(input.SourceReference, s.cfg.DefaultBucket)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Download(ctx, bucket, key)
	if err != nil {
		return nil, &extraction.ExtractionError{Reason: "downloading " + input.SourceReference, Err: err}
	}

	meta := domain.DocumentMetadata{
		ContentType: input.ContentType,
		SizeBytes:   input.SizeBytes,
		NameHint:    path.Base(key),
	}
	if meta.SizeBytes == 0 {
		meta.SizeBytes = int64(len(data))
	}
	if meta.ContentType == "" {
		s.fillFromStat(ctx, input.SourceReference, &meta)
	}
	classification := s.classifier.Classify(input.SourceReference, meta)
	if classification.DocumentType == classifier.TypePDFInvoice {
		meta.PageCount = classifier.CountPDFPages(data)
		if meta.PageCount > 1 {
			classification = s.classifier.Classify(input.SourceReference, meta)
		}
	}

	correlationID := input.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log.Printf("pipelineService.Extract: [%s] %s classified as %s (strategy %s, hints %v)",
		correlationID, input.SourceReference, classification.DocumentType, classification.RecommendedStrategy, classification.FormatHints)

	res, err := s.extractor.ExtractWithOptions(ctx, extraction.Request{
		SourceRef:     input.SourceReference,
		ContentType:   meta.ContentType,
		CorrelationID: correlationID,
		Strategy:      classification.RecommendedStrategy,
		DocumentType:  classification.DocumentType,
		Data:          data,
	})
	if err != nil {
		return nil, err
	}

	return &domain.ExtractionResult{
		RecordID:       res.RecordID,
		Document:       *res.Document,
		Classification: classification,
		Model:          res.Model,
	}, nil
}

func (s *pipelineService) Validate(doc *domain.StructuredDocument) *domain.ValidationReport {
	return s.validator.Validate(doc)
}

func (s *pipelineService) Score(doc *domain.StructuredDocument) *domain.ConfidenceReport {
	return s.scorer.Score(doc)
}

func (s *pipelineService) RunParallel(ctx context.Context, doc *domain.StructuredDocument, evaluators []string, correlationID string) *domain.AggregateResult {
	return s.orchestrator.RunParallel(ctx, doc, evaluators, correlationID)
}

func (s *pipelineService) InvokeEvaluator(ctx context.Context, name string, doc *domain.StructuredDocument, correlationID string, timeout time.Duration) domain.EvaluationOutcome {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	if timeout <= 0 {
		timeout = s.cfg.EvaluatorTimeout
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return domain.NewFailureOutcome(name, domain.ErrorKindInvocation, fmt.Sprintf("encoding document: %v", err), 0)
	}
	return s.invoker.Invoke(ctx, name, orchestrator.NewRequest(payload, name, correlationID), timeout)
}

// Run executes extraction, validation, scoring and evaluator fan-out.
// Only extraction failures fail the run; evaluator failures are reported
// inside the aggregate.
func (s *pipelineService) Run(ctx context.Context, input *ProcessInput) (*domain.PipelineResult, error) {
	start := time.Now()
	correlationID := input.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	extracted, err := s.Extract(ctx, &ExtractInput{
		SourceReference: input.SourceReference,
		ContentType:     input.ContentType,
		SizeBytes:       input.SizeBytes,
		CorrelationID:   correlationID,
	})
	if err != nil {
		log.Printf("pipelineService.Run: [%s] extraction failed: %v", correlationID, err)
		return nil, err
	}
	doc := &extracted.Document

	evaluators := input.Evaluators
	if len(evaluators) == 0 {
		evaluators = s.cfg.DefaultEvaluators
	}

	result := &domain.PipelineResult{
		CorrelationID: correlationID,
		Extraction:    *extracted,
		Validation:    s.validator.Validate(doc),
		Confidence:    s.scorer.Score(doc),
		Aggregate:     s.orchestrator.RunParallel(ctx, doc, evaluators, correlationID),
	}
	result.TotalElapsedMs = time.Since(start).Milliseconds()

	log.Printf("pipelineService.Run: [%s] %s validation=%s grade=%s completion=%.2f in %dms",
		correlationID, input.SourceReference, result.Validation.Status, result.Confidence.Grade,
		result.Aggregate.CompletionRate, result.TotalElapsedMs)

	if s.notifier != nil {
		if err := s.notifier.NotifyPipelineResult(ctx, result); err != nil {
			log.Printf("pipelineService.Run: [%s] notification failed: %v", correlationID, err)
		}
	}
	return result, nil
}

func (s *pipelineService) GetExtraction(ctx context.Context, id uuid.UUID) (*domain.ExtractionRecord, error) {
	if s.records == nil {
		return nil, fmt.Errorf("extraction %s: %w", id, domain.ErrNotFound)
	}
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading extraction %s: %w", id, err)
	}
	return rec, nil
}
