// Package scoring aggregates per-field extraction confidence into an overall
// score and grade.
package scoring

import (
	"fmt"

	"invoiceflow/internal/domain"
)

// DefaultLowConfidenceThreshold marks fields that need review.
const DefaultLowConfidenceThreshold = 0.85

// Scorer computes ConfidenceReports.
type Scorer struct {
	threshold float64
}

// New creates a Scorer. A non-positive threshold uses the default.
func New(threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultLowConfidenceThreshold
	}
	return &Scorer{threshold: threshold}
}

// Score averages every field's confidence. Fields below the threshold are
// listed with their formatted percentage. An empty field set scores 0 / POOR.
func (s *Scorer) Score(doc *domain.StructuredDocument) *domain.ConfidenceReport {
	rep := &domain.ConfidenceReport{
		PerField:            map[string]float64{},
		LowConfidenceFields: map[string]string{},
	}
	if doc == nil {
		rep.Grade = Grade(0)
		return rep
	}

	var sum float64
	var count int
	for _, name := range doc.FieldNames() {
		conf := doc.Fields[name].Confidence
		rep.PerField[name] = conf
		sum += conf
		count++
		if conf < s.threshold {
			rep.LowConfidenceFields[name] = fmt.Sprintf("%.1f%%", conf*100)
		}
	}
	if count > 0 {
		rep.Overall = sum / float64(count)
	}
	rep.Grade = Grade(rep.Overall)
	return rep
}

// Grade maps an overall confidence to its bucket. Boundaries are strict:
// exactly 0.95 is GOOD and exactly 0.85 is ACCEPTABLE.
func Grade(overall float64) domain.ConfidenceGrade {
	switch {
	case overall > 0.95:
		return domain.GradeExcellent
	case overall > 0.85:
		return domain.GradeGood
	case overall > 0.70:
		return domain.GradeAcceptable
	default:
		return domain.GradePoor
	}
}
