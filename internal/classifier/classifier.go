// Package classifier infers a document's type and format hints from its
// storage metadata so the pipeline can pick an extraction strategy.
package classifier

import (
	"path"
	"sort"
	"strings"

	"invoiceflow/internal/domain"
)

const (
	TypePDFInvoice   = "pdf_invoice"
	TypeImageInvoice = "image_invoice"
	TypeUnknown      = "unknown"

	StrategyDocumentAnalysis = "document_analysis"
	StrategyImageOCR         = "image_ocr"
	StrategyGeneric          = "generic"

	HintLargeDocument = "large_document"
	HintMultiPage     = "multi_page"

	// DefaultLargeDocumentBytes is the size above which a document is flagged large.
	DefaultLargeDocumentBytes int64 = 500000
)

type typeEntry struct {
	documentType string
	confidence   float64
	strategy     string
}

var typeTable = map[domain.FileType]typeEntry{
	domain.FileTypePDF: {TypePDFInvoice, 0.95, StrategyDocumentAnalysis},
	domain.FileTypeJPG: {TypeImageInvoice, 0.85, StrategyImageOCR},
	domain.FileTypePNG: {TypeImageInvoice, 0.85, StrategyImageOCR},
}

var unknownEntry = typeEntry{TypeUnknown, 0.5, StrategyGeneric}

// Classifier is a pure function of document metadata.
type Classifier struct {
	largeDocumentBytes int64
}

// New creates a Classifier. A non-positive threshold uses DefaultLargeDocumentBytes.
func New(largeDocumentBytes int64) *Classifier {
	if largeDocumentBytes <= 0 {
		largeDocumentBytes = DefaultLargeDocumentBytes
	}
	return &Classifier{largeDocumentBytes: largeDocumentBytes}
}

// Classify derives type, confidence, format hints and a recommended strategy.
// Missing metadata yields the unknown type, never an error.
func (c *Classifier) Classify(sourceRef string, meta domain.DocumentMetadata) domain.Classification {
	entry := unknownEntry
	if ft, ok := detectFileType(sourceRef, meta); ok {
		entry = typeTable[ft]
	}

	hints := map[string]bool{}
	if meta.SizeBytes > c.largeDocumentBytes {
		hints[HintLargeDocument] = true
	}
	name := meta.NameHint
	if name == "" {
		name = sourceRef
	}
	if strings.Contains(strings.ToLower(path.Base(name)), "multi") {
		hints[HintMultiPage] = true
	}
	if meta.PageCount > 1 {
		hints[HintMultiPage] = true
	}

	formatHints := make([]string, 0, len(hints))
	for h := range hints {
		formatHints = append(formatHints, h)
	}
	sort.Strings(formatHints)

	return domain.Classification{
		DocumentType:        entry.documentType,
		Confidence:          entry.confidence,
		FormatHints:         formatHints,
		RecommendedStrategy: entry.strategy,
	}
}

// detectFileType prefers the file extension and falls back to the content type.
func detectFileType(sourceRef string, meta domain.DocumentMetadata) (domain.FileType, bool) {
	for _, name := range []string{meta.NameHint, sourceRef} {
		if name == "" {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
		if ft, ok := domain.AllowedExtensions[ext]; ok {
			return ft, true
		}
	}
	ct := strings.ToLower(strings.TrimSpace(meta.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ft, ok := domain.AllowedContentTypes[ct]
	return ft, ok
}

// ContentTypeFor returns the MIME type the classifier associates with a source
// reference, falling back to the supplied content type.
func ContentTypeFor(sourceRef, fallback string) string {
	if ft, ok := detectFileType(sourceRef, domain.DocumentMetadata{ContentType: fallback}); ok {
		return domain.ContentTypes[ft]
	}
	return fallback
}
