package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/scoring"
)

func docWith(confs map[string]float64) *domain.StructuredDocument {
	fields := make(map[string]domain.ExtractedField, len(confs))
	for name, c := range confs {
		fields[name] = domain.ExtractedField{Name: name, Value: "x", Confidence: c}
	}
	return &domain.StructuredDocument{Fields: fields}
}

func TestScore_MeanOfFields(t *testing.T) {
	s := scoring.New(0)

	rep := s.Score(docWith(map[string]float64{
		"invoice_number": 0.99,
		"vendor_name":    0.72,
		"total_amount":   0.90,
	}))

	assert.InDelta(t, (0.99+0.72+0.90)/3, rep.Overall, 1e-9)
	assert.Len(t, rep.PerField, 3)
	assert.Equal(t, map[string]string{"vendor_name": "72.0%"}, rep.LowConfidenceFields)
	assert.Equal(t, domain.GradeGood, rep.Grade)
}

func TestScore_EmptyFieldSet(t *testing.T) {
	s := scoring.New(0)

	for _, doc := range []*domain.StructuredDocument{nil, {}, docWith(nil)} {
		rep := s.Score(doc)
		assert.Equal(t, 0.0, rep.Overall)
		assert.Equal(t, domain.GradePoor, rep.Grade)
		assert.Empty(t, rep.LowConfidenceFields)
	}
}

func TestScore_MissingConfidenceCountsAsZero(t *testing.T) {
	s := scoring.New(0)
	doc := &domain.StructuredDocument{Fields: map[string]domain.ExtractedField{
		"a": {Name: "a", Value: "1", Confidence: 1},
		"b": {Name: "b", Value: "2"},
	}}

	rep := s.Score(doc)

	assert.Equal(t, 0.5, rep.Overall)
	assert.Equal(t, "0.0%", rep.LowConfidenceFields["b"])
}

func TestGrade_StrictBoundaries(t *testing.T) {
	cases := []struct {
		in   float64
		want domain.ConfidenceGrade
	}{
		{1.0, domain.GradeExcellent},
		{0.951, domain.GradeExcellent},
		{0.95, domain.GradeGood},
		{0.851, domain.GradeGood},
		{0.85, domain.GradeAcceptable},
		{0.701, domain.GradeAcceptable},
		{0.70, domain.GradePoor},
		{0, domain.GradePoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, scoring.Grade(tc.in), "overall=%v", tc.in)
	}
}

func TestScore_ThresholdIsStrict(t *testing.T) {
	s := scoring.New(0)

	rep := s.Score(docWith(map[string]float64{"at": 0.85, "below": 0.8499}))

	assert.NotContains(t, rep.LowConfidenceFields, "at")
	assert.Contains(t, rep.LowConfidenceFields, "below")
}
