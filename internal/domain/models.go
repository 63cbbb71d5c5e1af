package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExtractedField is a single named value produced by field extraction.
type ExtractedField struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Present reports whether the field carries a non-blank value.
func (f ExtractedField) Present() bool {
	return strings.TrimSpace(f.Value) != ""
}

// Float parses the field value as a monetary or numeric amount.
// See ParseAmount for the accepted forms.
func (f ExtractedField) Float() (float64, bool) {
	return ParseAmount(f.Value)
}

// LineItem is one row of the invoice's item table, in extraction order.
type LineItem struct {
	Description ExtractedField `json:"description"`
	Quantity    ExtractedField `json:"quantity"`
	UnitPrice   ExtractedField `json:"unit_price"`
	Total       ExtractedField `json:"total"`
}

// StructuredDocument is the normalized output of one extraction call.
// It is read-only once handed to validation, scoring and orchestration.
type StructuredDocument struct {
	Fields            map[string]ExtractedField `json:"fields"`
	LineItems         []LineItem                `json:"line_items"`
	SourceReference   string                    `json:"source_reference"`
	OverallConfidence float64                   `json:"overall_confidence"`
}

// Field returns the named field and whether it exists with a non-blank value.
func (d *StructuredDocument) Field(name string) (ExtractedField, bool) {
	if d == nil || d.Fields == nil {
		return ExtractedField{}, false
	}
	f, ok := d.Fields[name]
	if !ok || !f.Present() {
		return f, false
	}
	return f, true
}

// Number returns the named field parsed as an amount.
func (d *StructuredDocument) Number(name string) (float64, bool) {
	f, ok := d.Field(name)
	if !ok {
		return 0, false
	}
	return f.Float()
}

// FieldNames returns the field names in sorted order.
func (d *StructuredDocument) FieldNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationReport is the result of the business-rule checks on a document.
type ValidationReport struct {
	Status            ValidationStatus `json:"status"`
	CompletenessScore float64          `json:"completeness_score"`
	Flags             []string         `json:"flags"`
	Issues            []string         `json:"issues"`
	MissingFields     []string         `json:"missing_fields"`
	Recommendations   []string         `json:"recommendations"`
}

// ConfidenceReport aggregates per-field extraction confidence.
// LowConfidenceFields maps each field below the threshold to its formatted percentage.
type ConfidenceReport struct {
	Overall             float64            `json:"overall"`
	PerField            map[string]float64 `json:"per_field"`
	LowConfidenceFields map[string]string  `json:"low_confidence_fields"`
	Grade               ConfidenceGrade    `json:"grade"`
}

// DocumentMetadata describes a stored source document.
type DocumentMetadata struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	NameHint    string `json:"name_hint"`
	PageCount   int    `json:"page_count,omitempty"`
}

// Classification is the document classifier's verdict.
type Classification struct {
	DocumentType        string   `json:"document_type"`
	Confidence          float64  `json:"confidence"`
	FormatHints         []string `json:"format_hints"`
	RecommendedStrategy string   `json:"recommended_strategy"`
}

// HasHint reports whether the classification carries the given format hint.
func (c Classification) HasHint(hint string) bool {
	for _, h := range c.FormatHints {
		if h == hint {
			return true
		}
	}
	return false
}

// EvaluationRequest is the input of one evaluator call within a fan-out.
type EvaluationRequest struct {
	EvaluatorName     string            `json:"evaluator_name"`
	CorrelationID     string            `json:"correlation_id"`
	Payload           json.RawMessage   `json:"payload"`
	SessionAttributes map[string]string `json:"session_attributes"`
}

// EvaluationOutcome is either a Success (Result, ElapsedMs) or a Failure
// (ErrorKind, Message), discriminated by Status.
type EvaluationOutcome struct {
	Status        OutcomeStatus   `json:"status"`
	EvaluatorName string          `json:"evaluator_name"`
	Result        json.RawMessage `json:"result,omitempty"`
	ElapsedMs     int64           `json:"elapsed_ms"`
	ErrorKind     ErrorKind       `json:"error_kind,omitempty"`
	Message       string          `json:"message,omitempty"`
	Trace         []string        `json:"trace,omitempty"`
}

// NewSuccessOutcome builds a Success variant.
func NewSuccessOutcome(evaluator string, result json.RawMessage, elapsed time.Duration) EvaluationOutcome {
	return EvaluationOutcome{
		Status:        OutcomeSuccess,
		EvaluatorName: evaluator,
		Result:        result,
		ElapsedMs:     elapsed.Milliseconds(),
	}
}

// NewFailureOutcome builds a Failure variant.
func NewFailureOutcome(evaluator string, kind ErrorKind, msg string, elapsed time.Duration) EvaluationOutcome {
	return EvaluationOutcome{
		Status:        OutcomeFailure,
		EvaluatorName: evaluator,
		ElapsedMs:     elapsed.Milliseconds(),
		ErrorKind:     kind,
		Message:       msg,
	}
}

// Succeeded reports whether the outcome is the Success variant.
func (o EvaluationOutcome) Succeeded() bool { return o.Status == OutcomeSuccess }

// AggregateResult is the terminal artifact of one orchestration run.
// Outcomes follow launch order, which is the order of Requested minus skipped names.
type AggregateResult struct {
	CorrelationID  string              `json:"correlation_id"`
	Requested      []string            `json:"requested"`
	Outcomes       []EvaluationOutcome `json:"outcomes"`
	SuccessCount   int                 `json:"success_count"`
	FailureCount   int                 `json:"failure_count"`
	CompletionRate float64             `json:"completion_rate"`
	TotalElapsedMs int64               `json:"total_elapsed_ms"`
}

// ExtractionResult is the payload returned by the extract action.
type ExtractionResult struct {
	RecordID       uuid.UUID          `json:"record_id"`
	Document       StructuredDocument `json:"document"`
	Classification Classification     `json:"classification"`
	Model          string             `json:"model"`
}

// PipelineResult bundles every artifact of one end-to-end pipeline run.
type PipelineResult struct {
	CorrelationID  string            `json:"correlation_id"`
	Extraction     ExtractionResult  `json:"extraction"`
	Validation     *ValidationReport `json:"validation"`
	Confidence     *ConfidenceReport `json:"confidence"`
	Aggregate      *AggregateResult  `json:"aggregate"`
	TotalElapsedMs int64             `json:"total_elapsed_ms"`
}

// ExtractionRecord is the persisted form of a structured document.
type ExtractionRecord struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	CorrelationID     string          `db:"correlation_id" json:"correlation_id"`
	SourceReference   string          `db:"source_reference" json:"source_reference"`
	DocumentType      string          `db:"document_type" json:"document_type"`
	Model             string          `db:"model" json:"model"`
	StructuredData    json.RawMessage `db:"structured_data" json:"structured_data"`
	OverallConfidence float64         `db:"overall_confidence" json:"overall_confidence"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
