package port

import "context"

// InvokeInput is the outbound request for one specialist evaluator call.
type InvokeInput struct {
	CapabilityID        string
	CapabilityVersionID string
	CorrelationID       string
	InputText           string
	SessionAttributes   map[string]string
}

// Chunk is one element of an evaluator's response stream. Exactly one of
// Text or Trace is set.
type Chunk struct {
	Text  string
	Trace string
}

// ChunkStream yields incremental output. Next returns io.EOF once the stream
// has completed.
type ChunkStream interface {
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

// EvaluatorBackend abstracts the transport used to reach specialist evaluators.
type EvaluatorBackend interface {
	Invoke(ctx context.Context, input InvokeInput) (ChunkStream, error)
}
