package validator

import (
	"fmt"
	"math"

	"invoiceflow/internal/domain"
)

// rule is one built-in check. run appends to Flags on success and to Issues on failure.
type rule struct {
	key  string
	name string
	run  func(*domain.StructuredDocument, *domain.ValidationReport)
}

func builtinRules(v *Validator) []rule {
	return []rule{
		{key: "req.fields", name: "Required Fields", run: checkRequired},
		{key: "conf.overall", name: "Overall Confidence", run: v.checkConfidence},
		{key: "logic.amounts", name: "Amounts Logical", run: checkAmounts},
		{key: "math.line_items", name: "Line Item Reconciliation", run: v.checkLineItems},
		{key: "logic.due_date", name: "Due Date Ordering", run: checkDueDate},
	}
}

func checkRequired(doc *domain.StructuredDocument, rep *domain.ValidationReport) {
	for _, name := range RequiredFields {
		if _, ok := doc.Field(name); ok {
			rep.Flags = append(rep.Flags, fmt.Sprintf("Required: %s is present", name))
			continue
		}
		rep.Issues = append(rep.Issues, fmt.Sprintf("Required: %s is missing or empty", name))
		rep.MissingFields = append(rep.MissingFields, name)
	}
}

func (v *Validator) checkConfidence(doc *domain.StructuredDocument, rep *domain.ValidationReport) {
	if doc.OverallConfidence < v.threshold {
		rep.Issues = append(rep.Issues, fmt.Sprintf(
			"Confidence: overall extraction confidence %.1f%% is below the %.1f%% threshold",
			doc.OverallConfidence*100, v.threshold*100))
	}
}

// checkAmounts only flags; a missing flag is itself the signal.
func checkAmounts(doc *domain.StructuredDocument, rep *domain.ValidationReport) {
	total, okTotal := doc.Number(FieldTotalAmount)
	tax, okTax := doc.Number(FieldTaxAmount)
	if !okTotal || !okTax {
		return
	}
	subtotal := total - tax
	if subtotal > 0 && tax > 0 {
		rep.Flags = append(rep.Flags, fmt.Sprintf(
			"Amounts: subtotal %s and tax %s are logical", fmtf(subtotal), fmtf(tax)))
	}
}

func (v *Validator) checkLineItems(doc *domain.StructuredDocument, rep *domain.ValidationReport) {
	if len(doc.LineItems) == 0 {
		return
	}
	rep.Flags = append(rep.Flags, fmt.Sprintf("Line items: %d extracted", len(doc.LineItems)))

	var sum float64
	for i := range doc.LineItems {
		item := &doc.LineItems[i]
		amount, ok := item.Total.Float()
		if !ok {
			rep.Issues = append(rep.Issues, fmt.Sprintf(
				"Line items: line_items[%d].total %q is not numeric; totals could not be reconciled", i, item.Total.Value))
			return
		}
		sum += amount
	}

	if _, present := doc.Field(FieldTotalAmount); !present {
		return
	}
	total, ok := doc.Number(FieldTotalAmount)
	if !ok {
		rep.Issues = append(rep.Issues, fmt.Sprintf(
			"Line items: total_amount %q is not numeric; totals could not be reconciled", doc.Fields[FieldTotalAmount].Value))
		return
	}
	if math.Abs(total-sum) < v.tolerance {
		rep.Flags = append(rep.Flags, fmt.Sprintf(
			"Line items: totals match (invoice total %s, line item sum %s)", fmtf(total), fmtf(sum)))
		return
	}
	rep.Issues = append(rep.Issues, fmt.Sprintf(
		"Line items: totals mismatch (invoice total %s, line item sum %s)", fmtf(total), fmtf(sum)))
}

func checkDueDate(doc *domain.StructuredDocument, rep *domain.ValidationReport) {
	invField, okInv := doc.Field(FieldInvoiceDate)
	dueField, okDue := doc.Field(FieldDueDate)
	if !okInv || !okDue {
		return
	}
	invDate, errInv := parseDate(invField.Value)
	dueDate, errDue := parseDate(dueField.Value)
	if errInv != nil || errDue != nil {
		rep.Issues = append(rep.Issues, fmt.Sprintf(
			"Dates: could not compare invoice_date %q and due_date %q", invField.Value, dueField.Value))
		return
	}
	if dueDate.After(invDate) {
		rep.Flags = append(rep.Flags, fmt.Sprintf(
			"Dates: due_date %s is after invoice_date %s", dueDate.Format(dateLayout), invDate.Format(dateLayout)))
		return
	}
	rep.Issues = append(rep.Issues, fmt.Sprintf(
		"Dates: due_date %s is not after invoice_date %s", dueDate.Format(dateLayout), invDate.Format(dateLayout)))
}

func fmtf(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
