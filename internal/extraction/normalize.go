package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/jsontext"
)

const (
	keyFields    = "fields"
	keyLineItems = "line_items"
)

// Normalize converts a backend response into a StructuredDocument. Both the
// nested form {"fields": {...}, "line_items": [...]} and a flat map of
// field name to {"value", "confidence"} are accepted.
func Normalize(text, sourceRef string) (*domain.StructuredDocument, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newExtractionError("empty response from backend", domain.ErrMalformedPayload)
	}
	raw, ok := jsontext.Extract(text)
	if !ok {
		return nil, newExtractionError("response is not JSON: "+truncate(text, 200), domain.ErrMalformedPayload)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, newExtractionError("response is not a JSON object", domain.ErrMalformedPayload)
	}

	fieldsRaw := top
	if nested, ok := top[keyFields]; ok {
		if err := json.Unmarshal(nested, &fieldsRaw); err != nil {
			return nil, newExtractionError(`"fields" is not an object`, domain.ErrMalformedPayload)
		}
	}

	doc := &domain.StructuredDocument{
		Fields:          make(map[string]domain.ExtractedField, len(fieldsRaw)),
		LineItems:       []domain.LineItem{},
		SourceReference: sourceRef,
	}
	for name, v := range fieldsRaw {
		if name == keyFields || name == keyLineItems {
			continue
		}
		doc.Fields[name] = toField(name, v)
	}

	if itemsRaw, ok := top[keyLineItems]; ok && !isNull(itemsRaw) {
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(itemsRaw, &items); err != nil {
			return nil, newExtractionError(`"line_items" is not an array of objects`, domain.ErrMalformedPayload)
		}
		for _, item := range items {
			doc.LineItems = append(doc.LineItems, domain.LineItem{
				Description: toField("description", item["description"]),
				Quantity:    toField("quantity", item["quantity"]),
				UnitPrice:   toField("unit_price", item["unit_price"]),
				Total:       toField("total", item["total"]),
			})
		}
	}

	if len(doc.Fields) == 0 && len(doc.LineItems) == 0 {
		return nil, newExtractionError("response carries no fields", domain.ErrMalformedPayload)
	}

	doc.OverallConfidence = meanConfidence(doc.Fields)
	return doc, nil
}

// toField accepts {"value": v, "confidence": c} or a bare scalar (confidence 0).
func toField(name string, raw json.RawMessage) domain.ExtractedField {
	f := domain.ExtractedField{Name: name}
	if len(raw) == 0 || isNull(raw) {
		return f
	}
	var obj struct {
		Value      json.RawMessage `json:"value"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) && json.Unmarshal(raw, &obj) == nil {
		f.Value = scalarString(obj.Value)
		f.Confidence = clamp(number(obj.Confidence))
		return f
	}
	f.Value = scalarString(raw)
	return f
}

// scalarString renders a JSON value as text. Numbers keep their literal form.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

func number(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return 0
}

func clamp(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

func meanConfidence(fields map[string]domain.ExtractedField) float64 {
	if len(fields) == 0 {
		return 0
	}
	var sum float64
	for _, f := range fields {
		sum += f.Confidence
	}
	return sum / float64(len(fields))
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes)", s[:maxLen], len(s))
}
