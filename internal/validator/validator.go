// Package validator applies business-rule checks to a structured document.
// Every check always runs; a failed check records an issue, a passed check a flag.
package validator

import (
	"invoiceflow/internal/domain"
)

const (
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldDueDate       = "due_date"
	FieldVendorName    = "vendor_name"
	FieldTotalAmount   = "total_amount"
	FieldTaxAmount     = "tax_amount"

	DefaultConfidenceThreshold = 0.85
	DefaultMatchTolerance      = 1.0

	recommendationPassed = "Extraction passed all checks; the invoice can proceed to evaluation."
	recommendationFailed = "Review the reported issues and correct the extracted fields before approval."
)

// RequiredFields is the fixed set of fields every invoice must carry.
var RequiredFields = []string{
	FieldInvoiceNumber,
	FieldInvoiceDate,
	FieldVendorName,
	FieldTotalAmount,
	FieldTaxAmount,
}

// Options tunes the validator thresholds. Zero values select the defaults.
type Options struct {
	ConfidenceThreshold float64
	MatchTolerance      float64
}

// Validator runs the ordered rule set against documents.
type Validator struct {
	threshold float64
	tolerance float64
	rules     []rule
}

// New creates a Validator with the built-in rules.
func New(opts Options) *Validator {
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if opts.MatchTolerance <= 0 {
		opts.MatchTolerance = DefaultMatchTolerance
	}
	v := &Validator{
		threshold: opts.ConfidenceThreshold,
		tolerance: opts.MatchTolerance,
	}
	v.rules = builtinRules(v)
	return v
}

// RuleKeys returns the keys of the rules in execution order.
func (v *Validator) RuleKeys() []string {
	keys := make([]string, 0, len(v.rules))
	for _, r := range v.rules {
		keys = append(keys, r.key)
	}
	return keys
}

// Validate runs every rule and derives status, completeness and recommendations.
// It never fails: unparsable values surface as issues.
func (v *Validator) Validate(doc *domain.StructuredDocument) *domain.ValidationReport {
	if doc == nil {
		doc = &domain.StructuredDocument{}
	}
	rep := &domain.ValidationReport{
		Flags:         []string{},
		Issues:        []string{},
		MissingFields: []string{},
	}
	for _, r := range v.rules {
		r.run(doc, rep)
	}

	rep.CompletenessScore = 1 - float64(len(rep.MissingFields))/float64(len(RequiredFields))
	if len(rep.Issues) == 0 {
		rep.Status = domain.ValidationStatusPassed
		rep.Recommendations = []string{recommendationPassed}
	} else {
		rep.Status = domain.ValidationStatusFailed
		rep.Recommendations = []string{recommendationFailed}
	}
	return rep
}
