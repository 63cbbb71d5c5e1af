package extraction

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoiceflow/internal/classifier"
	"invoiceflow/internal/domain"
	"invoiceflow/internal/port"
)

// DefaultPersistTimeout bounds one best-effort record save.
const DefaultPersistTimeout = 5 * time.Second

// Request is the full input of one extraction.
type Request struct {
	SourceRef     string
	ContentType   string
	CorrelationID string
	Strategy      string
	DocumentType  string
	// Data, when set, is used instead of downloading SourceRef.
	Data []byte
}

// Result carries the normalized document and the provenance of the call.
type Result struct {
	Document *domain.StructuredDocument
	Model    string
	RecordID uuid.UUID
	Trace    []string
}

// Adapter turns a stored source document into a StructuredDocument through
// an external extraction backend.
type Adapter struct {
	storage        port.ObjectStorage
	backend        port.ExtractionBackend
	records        port.ExtractionRecordRepository
	defaultBucket  string
	persistTimeout time.Duration
	traceLog       bool
	wg             sync.WaitGroup
}

// NewAdapter creates an Adapter. records may be nil, in which case results
// are not persisted.
func NewAdapter(
	storage port.ObjectStorage,
	backend port.ExtractionBackend,
	records port.ExtractionRecordRepository,
	defaultBucket string,
	persistTimeout time.Duration,
) *Adapter {
	if persistTimeout <= 0 {
		persistTimeout = DefaultPersistTimeout
	}
	return &Adapter{
		storage:        storage,
		backend:        backend,
		records:        records,
		defaultBucket:  defaultBucket,
		persistTimeout: persistTimeout,
		traceLog:       true,
	}
}

// SetTraceLogging toggles logging of backend trace events.
func (a *Adapter) SetTraceLogging(on bool) {
	a.traceLog = on
}

// Extract downloads sourceRef and returns its structured fields.
func (a *Adapter) Extract(ctx context.Context, sourceRef string) (*domain.StructuredDocument, error) {
	res, err := a.ExtractWithOptions(ctx, Request{SourceRef: sourceRef})
	if err != nil {
		return nil, err
	}
	return res.Document, nil
}

// ExtractWithOptions is Extract with an explicit content type, strategy and
// correlation id.
func (a *Adapter) ExtractWithOptions(ctx context.Context, req Request) (*Result, error) {
	bucket, key, err := ParseSourceReference(req.SourceRef, a.defaultBucket)
	if err != nil {
		return nil, newExtractionError("invalid source reference", err)
	}

	data := req.Data
	if data == nil {
		data, err = a.storage.Download(ctx, bucket, key)
		if err != nil {
			return nil, newExtractionError("downloading "+req.SourceRef, err)
		}
	}

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	out, err := a.backend.Extract(ctx, port.ExtractInput{
		FileBytes:       data,
		ContentType:     classifier.ContentTypeFor(key, req.ContentType),
		SourceReference: req.SourceRef,
		CorrelationID:   correlationID,
		Strategy:        req.Strategy,
	})
	if err != nil {
		return nil, newExtractionError("backend call", err)
	}
	if a.traceLog {
		for _, ev := range out.Trace {
			log.Printf("extraction.Adapter.Extract: [%s] trace: %s", correlationID, ev)
		}
	}

	doc, err := Normalize(out.Text, req.SourceRef)
	if err != nil {
		return nil, err
	}
	log.Printf("extraction.Adapter.Extract: [%s] %s -> %d fields, %d line items, confidence %.2f (model %s)",
		correlationID, req.SourceRef, len(doc.Fields), len(doc.LineItems), doc.OverallConfidence, out.Model)

	res := &Result{Document: doc, Model: out.Model, Trace: out.Trace}
	if a.records != nil {
		res.RecordID = uuid.New()
		a.persist(&domain.ExtractionRecord{
			ID:                res.RecordID,
			CorrelationID:     correlationID,
			SourceReference:   req.SourceRef,
			DocumentType:      req.DocumentType,
			Model:             out.Model,
			OverallConfidence: doc.OverallConfidence,
			CreatedAt:         time.Now().UTC(),
		}, doc)
	}
	return res, nil
}

// persist saves the record in the background on a detached context. The
// caller never observes its outcome.
func (a *Adapter) persist(record *domain.ExtractionRecord, doc *domain.StructuredDocument) {
	data, err := json.Marshal(doc)
	if err != nil {
		log.Printf("extraction.Adapter.persist: marshaling document for %s: %v", record.ID, err)
		return
	}
	record.StructuredData = data

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.persistTimeout)
		defer cancel()
		if err := a.records.Create(ctx, record); err != nil {
			log.Printf("extraction.Adapter.persist: saving record %s for %s: %v", record.ID, record.SourceReference, err)
		}
	}()
}

// Wait blocks until every pending save has finished.
func (a *Adapter) Wait() {
	a.wg.Wait()
}
