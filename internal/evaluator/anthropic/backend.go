// Package anthropic reaches specialist evaluators through the Anthropic
// Messages API, streaming the response as port.Chunks.
package anthropic

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"invoiceflow/internal/config"
	"invoiceflow/internal/port"
)

const (
	defaultModel    = "claude-sonnet-4-20250514"
	maxOutputTokens = 4096
)

// Backend implements port.EvaluatorBackend.
type Backend struct {
	client anthropic.Client
	model  string
}

// NewBackend creates an evaluator backend from a provider config.
func NewBackend(cfg *config.ProviderConfig, extra ...option.RequestOption) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout()),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	return &Backend{
		client: anthropic.NewClient(append(opts, extra...)...),
		model:  model,
	}
}

func (b *Backend) Invoke(ctx context.Context, input port.InvokeInput) (port.ChunkStream, error) {
	if input.CapabilityID == "" {
		return nil, fmt.Errorf("capability id is required")
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: maxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(input)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(input.InputText)),
		},
	}
	if input.CorrelationID != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(input.CorrelationID)}
	}

	stream := b.client.Messages.NewStreaming(ctx, params)
	// A failed request surfaces here, before any chunk is consumed.
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("calling anthropic API: %w", err)
	}
	return &chunkStream{stream: stream}, nil
}

func systemPrompt(input port.InvokeInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %q specialist evaluator", input.CapabilityID)
	if input.CapabilityVersionID != "" {
		fmt.Fprintf(&b, " (version %s)", input.CapabilityVersionID)
	}
	b.WriteString(" in an invoice processing pipeline. Answer with a single JSON object and nothing else.")
	if len(input.SessionAttributes) > 0 {
		keys := make([]string, 0, len(input.SessionAttributes))
		for k := range input.SessionAttributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n\nSession attributes:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s: %s", k, input.SessionAttributes[k])
		}
	}
	return b.String()
}

// chunkStream adapts the SDK event stream to port.ChunkStream. Text deltas
// become text chunks; message start and stop events become trace chunks.
type chunkStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
}

func (s *chunkStream) Next(ctx context.Context) (port.Chunk, error) {
	for {
		if err := ctx.Err(); err != nil {
			return port.Chunk{}, err
		}
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return port.Chunk{}, err
			}
			return port.Chunk{}, io.EOF
		}
		switch ev := s.stream.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				return port.Chunk{Text: delta.Text}, nil
			}
		case anthropic.MessageStartEvent:
			return port.Chunk{Trace: fmt.Sprintf("message_start id=%s model=%s", ev.Message.ID, ev.Message.Model)}, nil
		case anthropic.MessageDeltaEvent:
			return port.Chunk{Trace: fmt.Sprintf("stop_reason=%s output_tokens=%d", ev.Delta.StopReason, ev.Usage.OutputTokens)}, nil
		}
	}
}

func (s *chunkStream) Close() error {
	return s.stream.Close()
}
