package extraction

import "strings"

// BuildInvoicePrompt returns the extraction instruction sent alongside the
// document bytes. The strategy selects a short hint for the backend.
func BuildInvoicePrompt(strategy string) string {
	var b strings.Builder
	b.WriteString(`You are a document data extraction assistant. Analyze the provided invoice and extract its fields.

IMPORTANT INSTRUCTIONS:
- Extract EVERY line item from every page into a single "line_items" array.
- Keep amounts as they appear on the document, without currency symbols.
- Keep dates as they appear on the document.
- For every value report a confidence between 0.0 and 1.0. Use an empty value and 0.0 for fields not found.
`)
	switch strategy {
	case "image_ocr":
		b.WriteString("- The document is a photographed or scanned image; read it as OCR would and lower the confidence of unclear characters.\n")
	case "document_analysis":
		b.WriteString("- The document is a PDF; use its layout and tables to locate fields.\n")
	}
	b.WriteString(`
Return ONLY valid JSON with no markdown formatting and no explanation, using this schema:
{
  "fields": {
    "invoice_number": {"value": "", "confidence": 0.0},
    "invoice_date":   {"value": "", "confidence": 0.0},
    "due_date":       {"value": "", "confidence": 0.0},
    "vendor_name":    {"value": "", "confidence": 0.0},
    "customer_name":  {"value": "", "confidence": 0.0},
    "currency":       {"value": "", "confidence": 0.0},
    "subtotal":       {"value": "", "confidence": 0.0},
    "tax_amount":     {"value": "", "confidence": 0.0},
    "total_amount":   {"value": "", "confidence": 0.0}
  },
  "line_items": [
    {
      "description": {"value": "", "confidence": 0.0},
      "quantity":    {"value": "", "confidence": 0.0},
      "unit_price":  {"value": "", "confidence": 0.0},
      "total":       {"value": "", "confidence": 0.0}
    }
  ]
}`)
	return b.String()
}
