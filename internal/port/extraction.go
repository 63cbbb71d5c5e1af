package port

import "context"

// ExtractInput carries the data needed for one field extraction call.
type ExtractInput struct {
	FileBytes       []byte
	ContentType     string
	SourceReference string
	CorrelationID   string
	Strategy        string
}

// ExtractOutput is the raw response of an extraction backend. Text is the
// concatenation of every streamed chunk; Trace holds any diagnostic events.
type ExtractOutput struct {
	Text  string
	Model string
	Trace []string
}

// ExtractionBackend abstracts the external document-understanding capability.
type ExtractionBackend interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractOutput, error)
}
