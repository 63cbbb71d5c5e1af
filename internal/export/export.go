// Package export renders a persisted extraction as a CSV or XLSX download.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"invoiceflow/internal/domain"
)

// Supported export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var fieldColumns = []string{"Field", "Value", "Confidence"}

var lineItemColumns = []string{
	"Line",
	"Description",
	"Quantity",
	"Unit Price",
	"Total",
	"Description Confidence",
	"Total Confidence",
}

// ContentType returns the MIME type served for a format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Write decodes the record's structured data and renders it in format.
func Write(w io.Writer, format string, rec *domain.ExtractionRecord) error {
	var doc domain.StructuredDocument
	if err := json.Unmarshal(rec.StructuredData, &doc); err != nil {
		return fmt.Errorf("decoding extraction %s: %w: %v", rec.ID, domain.ErrMalformedPayload, err)
	}
	switch strings.ToLower(format) {
	case "", FormatCSV:
		return WriteCSV(w, &doc)
	case FormatXLSX:
		return WriteXLSX(w, &doc)
	default:
		return fmt.Errorf("%q: %w", format, domain.ErrUnsupportedFormat)
	}
}

// fieldRows returns one row per field, sorted by field name.
func fieldRows(doc *domain.StructuredDocument) [][]string {
	names := doc.FieldNames()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		f := doc.Fields[name]
		rows = append(rows, []string{name, f.Value, formatConfidence(f.Confidence)})
	}
	return rows
}

// lineItemRows returns one row per line item in extraction order.
func lineItemRows(doc *domain.StructuredDocument) [][]string {
	rows := make([][]string, 0, len(doc.LineItems))
	for i, item := range doc.LineItems {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.Description.Value,
			item.Quantity.Value,
			item.UnitPrice.Value,
			item.Total.Value,
			formatConfidence(item.Description.Confidence),
			formatConfidence(item.Total.Confidence),
		})
	}
	return rows
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename replaces characters unsafe in Content-Disposition with _,
// collapses runs of underscores and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns the download name for a record: the base name of
// its source reference plus the format extension.
func BuildFilename(rec *domain.ExtractionRecord, format string) string {
	base := rec.SourceReference
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	name := SanitizeFilename(base)
	if name == "" {
		name = rec.ID.String()
	}
	if format == "" {
		format = FormatCSV
	}
	return fmt.Sprintf("%s_extraction.%s", name, format)
}
