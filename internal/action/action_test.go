package action_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/action"
	"invoiceflow/internal/domain"
)

func TestDispatcher_UnknownFunction(t *testing.T) {
	d := action.NewDispatcher()
	resp := d.Invoke(context.Background(), action.Request{CapabilityGroup: "x", Function: "y"})

	assert.Equal(t, "x", resp.CapabilityGroup)
	assert.Equal(t, "y", resp.Function)
	f, ok := action.DecodeFailure(resp.Result)
	require.True(t, ok)
	assert.Equal(t, action.KindUnknownFunction, f.ErrorKind)
}

func TestDispatcher_HandlerErrorBecomesFailurePayload(t *testing.T) {
	d := action.NewDispatcher()
	d.Register("g", "missing", func(_ context.Context, p action.Params) (any, error) {
		_, err := p.Required("source_reference")
		return nil, err
	})
	d.Register("g", "boom", func(context.Context, action.Params) (any, error) {
		return nil, errors.New("boom")
	})

	resp := d.Invoke(context.Background(), action.Request{CapabilityGroup: "g", Function: "missing"})
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Result), &payload))
	assert.Equal(t, "failed", payload["status"])
	assert.Equal(t, action.KindMissingParameter, payload["error_kind"])
	assert.Contains(t, payload["error"], "source_reference")

	resp = d.Invoke(context.Background(), action.Request{CapabilityGroup: "g", Function: "boom"})
	f, ok := action.DecodeFailure(resp.Result)
	require.True(t, ok)
	assert.Equal(t, "boom", f.Error)
	assert.Equal(t, action.KindInternal, f.ErrorKind)
}

func TestDispatcher_HandlerPanicBecomesFailurePayload(t *testing.T) {
	d := action.NewDispatcher()
	d.Register("g", "panics", func(context.Context, action.Params) (any, error) {
		var doc *domain.StructuredDocument
		return doc.Fields["total_amount"], nil
	})

	var resp action.Response
	require.NotPanics(t, func() {
		resp = d.Invoke(context.Background(), action.Request{CapabilityGroup: "g", Function: "panics"})
	})

	assert.Equal(t, "g", resp.CapabilityGroup)
	assert.Equal(t, "panics", resp.Function)
	f, ok := action.DecodeFailure(resp.Result)
	require.True(t, ok)
	assert.Equal(t, action.StatusFailed, f.Status)
	assert.Equal(t, action.KindInternal, f.ErrorKind)
	assert.Contains(t, f.Error, "g/panics: internal error")
}

func TestDispatcher_SuccessResultIsJSONText(t *testing.T) {
	d := action.NewDispatcher()
	d.Register("g", "ok", func(context.Context, action.Params) (any, error) {
		return map[string]int{"n": 1}, nil
	})

	resp := d.Invoke(context.Background(), action.Request{CapabilityGroup: "g", Function: "ok"})
	assert.JSONEq(t, `{"n":1}`, resp.Result)
	_, failed := action.DecodeFailure(resp.Result)
	assert.False(t, failed)
}

func TestParams(t *testing.T) {
	p := action.Params{
		{Name: "a", Type: "string", Value: "  x  "},
		{Name: "n", Type: "integer", Value: "42"},
		{Name: "bad", Type: "integer", Value: "4x"},
		{Name: "csv", Type: "string", Value: "compliance, validation,,"},
		{Name: "arr", Type: "array", Value: `["compliance","validation"]`},
		{Name: "badarr", Type: "array", Value: `["compliance"`},
		{Name: "doc", Type: "json", Value: `{"fields":{"vendor_name":{"value":"Acme","confidence":0.9}}}`},
		{Name: "baddoc", Type: "json", Value: `{"fields":`},
	}

	assert.Equal(t, "x", p.Optional("a"))
	_, err := p.Required("zzz")
	assert.True(t, errors.Is(err, domain.ErrMissingParameter))
	var perr *action.ParameterError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "zzz", perr.Name)

	n, err := p.Int64("n")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), n)
	_, err = p.Int64("bad")
	assert.True(t, errors.Is(err, domain.ErrMalformedPayload))
	n, err = p.Int64("absent")
	assert.NoError(t, err)
	assert.Zero(t, n)

	list, err := p.List("csv")
	assert.NoError(t, err)
	assert.Equal(t, []string{"compliance", "validation"}, list)
	list, err = p.List("arr")
	assert.NoError(t, err)
	assert.Equal(t, []string{"compliance", "validation"}, list)
	_, err = p.List("badarr")
	assert.True(t, errors.Is(err, domain.ErrMalformedPayload))

	doc, err := p.Document("doc")
	require.NoError(t, err)
	assert.Equal(t, "vendor_name", doc.Fields["vendor_name"].Name)
	assert.Equal(t, "Acme", doc.Fields["vendor_name"].Value)
	_, err = p.Document("baddoc")
	assert.True(t, errors.Is(err, domain.ErrMalformedPayload))
	_, err = p.Document("absent")
	assert.True(t, errors.Is(err, domain.ErrMissingParameter))
}

func TestAggregateRoundTrip(t *testing.T) {
	agg := &domain.AggregateResult{
		CorrelationID: "run-1",
		Requested:     []string{"compliance", "validation"},
		Outcomes: []domain.EvaluationOutcome{
			{Status: domain.OutcomeFailure, EvaluatorName: "compliance", ErrorKind: domain.ErrorKindInvocation, Message: "timed out", ElapsedMs: 30},
			{Status: domain.OutcomeSuccess, EvaluatorName: "validation", Result: json.RawMessage(`{"approved":true}`), ElapsedMs: 12},
		},
		SuccessCount:   1,
		FailureCount:   1,
		CompletionRate: 0.5,
		TotalElapsedMs: 31,
	}

	encoded, err := action.EncodeResult(agg)
	require.NoError(t, err)
	decoded, err := action.DecodeAggregate(encoded)
	require.NoError(t, err)

	assert.Equal(t, agg.SuccessCount, decoded.SuccessCount)
	assert.Equal(t, agg.FailureCount, decoded.FailureCount)
	assert.Equal(t, agg.CompletionRate, decoded.CompletionRate)
	require.Len(t, decoded.Outcomes, 2)
	assert.Equal(t, "compliance", decoded.Outcomes[0].EvaluatorName)
	assert.Equal(t, "validation", decoded.Outcomes[1].EvaluatorName)
	assert.JSONEq(t, `{"approved":true}`, string(decoded.Outcomes[1].Result))
}

func TestDecodeAggregate_FailurePayload(t *testing.T) {
	_, err := action.DecodeAggregate(`{"status":"failed","error":"missing parameter"}`)
	assert.ErrorContains(t, err, "missing parameter")

	_, err = action.DecodeAggregate(`not json`)
	assert.True(t, errors.Is(err, domain.ErrMalformedPayload))
}
