package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/jsontext"
	"invoiceflow/internal/port"
)

// DefaultTimeout applies when Invoke is called without a timeout.
const DefaultTimeout = 60 * time.Second

// Invoker performs one evaluator call: a single request, a streamed
// response, and a JSON parse once the stream has ended.
type Invoker struct {
	backend        port.EvaluatorBackend
	catalog        *Catalog
	defaultTimeout time.Duration
	traceLog       bool
}

// NewInvoker creates an Invoker. A nil catalog means DefaultCatalog.
func NewInvoker(backend port.EvaluatorBackend, catalog *Catalog, defaultTimeout time.Duration) *Invoker {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Invoker{backend: backend, catalog: catalog, defaultTimeout: defaultTimeout, traceLog: true}
}

// SetTraceLogging toggles logging of stream trace events. Traces are kept
// in the outcome either way.
func (i *Invoker) SetTraceLogging(on bool) {
	i.traceLog = on
}

// Catalog returns the catalog the invoker resolves names against.
func (i *Invoker) Catalog() *Catalog {
	return i.catalog
}

// DefaultTimeout returns the timeout used when Invoke receives zero.
func (i *Invoker) DefaultTimeout() time.Duration {
	return i.defaultTimeout
}

// Invoke calls the named evaluator and never returns an error: every
// failure is reported as a Failure outcome with ErrorKindInvocation.
// A response that is not JSON is a Success carrying {"rawText": ...}.
func (i *Invoker) Invoke(ctx context.Context, name string, req domain.EvaluationRequest, timeout time.Duration) domain.EvaluationOutcome {
	start := time.Now()
	fail := func(format string, args ...any) domain.EvaluationOutcome {
		msg := fmt.Sprintf(format, args...)
		log.Printf("evaluator.Invoker.Invoke: [%s] %s: %s", req.CorrelationID, name, msg)
		return domain.NewFailureOutcome(name, domain.ErrorKindInvocation, msg, time.Since(start))
	}

	entry, err := i.catalog.Resolve(name)
	if err != nil {
		return fail("%v", err)
	}
	if timeout <= 0 {
		timeout = i.defaultTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := i.backend.Invoke(callCtx, port.InvokeInput{
		CapabilityID:        entry.CapabilityID,
		CapabilityVersionID: entry.CapabilityVersionID,
		CorrelationID:       req.CorrelationID,
		InputText:           BuildInputText(entry.Instruction, req.Payload),
		SessionAttributes:   req.SessionAttributes,
	})
	if err != nil {
		return fail("%s", describe(callCtx, err, timeout))
	}
	defer func() { _ = stream.Close() }()

	var text strings.Builder
	var trace []string
	for {
		chunk, err := stream.Next(callCtx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail("%s", describe(callCtx, err, timeout))
		}
		if chunk.Trace != "" {
			if i.traceLog {
				log.Printf("evaluator.Invoker.Invoke: [%s] %s trace: %s", req.CorrelationID, name, chunk.Trace)
			}
			trace = append(trace, chunk.Trace)
		}
		text.WriteString(chunk.Text)
	}

	outcome := domain.NewSuccessOutcome(name, parseResult(text.String()), time.Since(start))
	outcome.Trace = trace
	return outcome
}

// BuildInputText renders the instruction followed by the document payload.
func BuildInputText(instruction string, payload json.RawMessage) string {
	var b strings.Builder
	if instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	b.WriteString("Document:\n")
	if len(payload) == 0 {
		b.WriteString("{}")
	} else {
		b.Write(payload)
	}
	return b.String()
}

func parseResult(text string) json.RawMessage {
	if raw, ok := jsontext.Extract(text); ok {
		return raw
	}
	raw, _ := json.Marshal(map[string]string{"rawText": text})
	return raw
}

func describe(ctx context.Context, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("timed out after %s: %v", timeout, err)
	}
	return fmt.Sprintf("%v: %v", domain.ErrInvocationFailed, err)
}
