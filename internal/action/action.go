// Package action implements the action-invocation boundary: a request names
// a capability group and function, carries string parameters, and always
// gets back a JSON-encoded result string.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"invoiceflow/internal/domain"
)

// Parameter is one named, typed, string-valued request argument.
type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Request is an action invocation.
type Request struct {
	CapabilityGroup string      `json:"capability_group"`
	Function        string      `json:"function"`
	Parameters      []Parameter `json:"parameters"`
}

// Response carries the JSON-encoded result of an action.
type Response struct {
	CapabilityGroup string `json:"capability_group"`
	Function        string `json:"function"`
	Result          string `json:"result"`
}

// Failure is the result payload of an action that could not complete.
type Failure struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// StatusFailed marks a Failure payload.
const StatusFailed = "failed"

// Error kinds reported in Failure payloads.
const (
	KindMissingParameter  = "MissingParameter"
	KindMalformedPayload  = "MalformedPayload"
	KindExtractionFailure = "ExtractionFailure"
	KindUnknownFunction   = "UnknownFunction"
	KindInternal          = "InternalError"
)

// ParameterError reports a missing or unparsable parameter.
type ParameterError struct {
	Name string
	Err  error
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %v", e.Name, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

// Params gives typed access to request parameters.
type Params []Parameter

// Get returns the value of the first parameter with the given name.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Optional returns the trimmed value, or "" when absent.
func (p Params) Optional(name string) string {
	v, _ := p.Get(name)
	return strings.TrimSpace(v)
}

// Required returns the trimmed value or a MissingParameter error.
func (p Params) Required(name string) (string, error) {
	v := p.Optional(name)
	if v == "" {
		return "", &ParameterError{Name: name, Err: domain.ErrMissingParameter}
	}
	return v, nil
}

// Int64 parses an optional integer parameter; absent yields 0.
func (p Params) Int64(name string) (int64, error) {
	v := p.Optional(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &ParameterError{Name: name, Err: fmt.Errorf("%w: %q is not an integer", domain.ErrMalformedPayload, v)}
	}
	return n, nil
}

// List parses a comma-separated list or a JSON array of strings.
func (p Params) List(name string) ([]string, error) {
	v := p.Optional(name)
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "[") {
		var out []string
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, &ParameterError{Name: name, Err: fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)}
		}
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// Document decodes a required StructuredDocument parameter.
func (p Params) Document(name string) (*domain.StructuredDocument, error) {
	v, err := p.Required(name)
	if err != nil {
		return nil, err
	}
	var doc domain.StructuredDocument
	if err := json.Unmarshal([]byte(v), &doc); err != nil {
		return nil, &ParameterError{Name: name, Err: fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)}
	}
	if doc.Fields == nil {
		doc.Fields = map[string]domain.ExtractedField{}
	}
	for fieldName, f := range doc.Fields {
		if f.Name == "" {
			f.Name = fieldName
			doc.Fields[fieldName] = f
		}
	}
	return &doc, nil
}

// Handler runs one function. The returned value is JSON-encoded into the
// response result.
type Handler func(ctx context.Context, params Params) (any, error)

// Dispatcher routes requests to registered handlers.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: map[string]Handler{}}
}

// Register binds a handler to group/function.
func (d *Dispatcher) Register(group, function string, h Handler) {
	d.handlers[key(group, function)] = h
}

// Functions returns the registered "group/function" keys.
func (d *Dispatcher) Functions() []string {
	out := make([]string, 0, len(d.handlers))
	for k := range d.handlers {
		out = append(out, k)
	}
	return out
}

// Invoke runs the request. It never fails at the protocol level: handler
// errors and panics become a Failure payload in Result.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (resp Response) {
	resp = Response{CapabilityGroup: req.CapabilityGroup, Function: req.Function}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("action.Dispatcher.Invoke: %s/%s panicked: %v", req.CapabilityGroup, req.Function, r)
			resp.Result = encodeFailure(fmt.Errorf("%s/%s: internal error: %v", req.CapabilityGroup, req.Function, r))
		}
	}()

	h, ok := d.handlers[key(req.CapabilityGroup, req.Function)]
	if !ok {
		resp.Result = encodeFailure(fmt.Errorf("%s/%s: %w", req.CapabilityGroup, req.Function, domain.ErrUnknownCapability))
		return resp
	}

	value, err := h(ctx, Params(req.Parameters))
	if err != nil {
		log.Printf("action.Dispatcher.Invoke: %s/%s failed: %v", req.CapabilityGroup, req.Function, err)
		resp.Result = encodeFailure(err)
		return resp
	}

	result, err := EncodeResult(value)
	if err != nil {
		resp.Result = encodeFailure(err)
		return resp
	}
	resp.Result = result
	return resp
}

// EncodeResult renders a typed payload as the wire-format JSON string.
func EncodeResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(b), nil
}

// DecodeResult parses a result string into v. A Failure payload is
// returned as an error.
func DecodeResult(result string, v any) error {
	var probe struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal([]byte(result), &probe); err == nil && probe.Status == StatusFailed && probe.Error != "" {
		return fmt.Errorf("action failed: %s", probe.Error)
	}
	if err := json.Unmarshal([]byte(result), v); err != nil {
		return fmt.Errorf("decoding result: %w: %v", domain.ErrMalformedPayload, err)
	}
	return nil
}

// DecodeAggregate parses an AggregateResult from a result string.
func DecodeAggregate(result string) (*domain.AggregateResult, error) {
	var agg domain.AggregateResult
	if err := DecodeResult(result, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// DecodeFailure reports whether result is a Failure payload.
func DecodeFailure(result string) (*Failure, bool) {
	var f Failure
	if err := json.Unmarshal([]byte(result), &f); err != nil || f.Status != StatusFailed {
		return nil, false
	}
	return &f, true
}

func encodeFailure(err error) string {
	b, _ := json.Marshal(Failure{Status: StatusFailed, Error: err.Error(), ErrorKind: kindOf(err)})
	return string(b)
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingParameter):
		return KindMissingParameter
	case errors.Is(err, domain.ErrMalformedPayload) && !errors.Is(err, domain.ErrExtractionFailed):
		return KindMalformedPayload
	case errors.Is(err, domain.ErrExtractionFailed):
		return KindExtractionFailure
	case errors.Is(err, domain.ErrUnknownCapability):
		return KindUnknownFunction
	default:
		return KindInternal
	}
}

func key(group, function string) string {
	return group + "/" + function
}
