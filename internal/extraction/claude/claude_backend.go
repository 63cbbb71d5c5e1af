package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"invoiceflow/internal/config"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/port"
)

const (
	defaultModel    = "claude-sonnet-4-20250514"
	maxOutputTokens = 16384
	providerName    = "claude"
	stopMaxTokens   = "max_tokens"
)

// Backend implements port.ExtractionBackend using the Anthropic Messages API
// in streaming mode.
type Backend struct {
	client anthropic.Client
	model  string
}

// NewBackend creates a Claude-based extraction backend from a provider config.
func NewBackend(cfg *config.ProviderConfig) *Backend {
	return newBackend(cfg)
}

// NewBackendWithEndpoint creates a backend pointing at a custom API base URL (for testing).
func NewBackendWithEndpoint(cfg *config.ProviderConfig, baseURL string) *Backend {
	return newBackend(cfg, option.WithBaseURL(baseURL))
}

// Factory adapts NewBackend to extraction.ProviderFactory.
func Factory(cfg *config.ProviderConfig) (port.ExtractionBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("claude extraction backend: api key is not configured")
	}
	return NewBackend(cfg), nil
}

func newBackend(cfg *config.ProviderConfig, extra ...option.RequestOption) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout()),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	opts = append(opts, extra...)
	return &Backend{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (b *Backend) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	blocks, err := buildContentBlocks(input)
	if err != nil {
		return nil, fmt.Errorf("building content blocks: %w", err)
	}

	stream := b.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: maxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	defer func() { _ = stream.Close() }()

	var text strings.Builder
	out := &port.ExtractOutput{Model: b.model}
	for stream.Next() {
		switch ev := stream.Current().AsAny().(type) {
		case anthropic.MessageStartEvent:
			if ev.Message.Model != "" {
				out.Model = string(ev.Message.Model)
			}
		case anthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok {
				text.WriteString(delta.Text)
			}
		case anthropic.MessageDeltaEvent:
			if string(ev.Delta.StopReason) == stopMaxTokens {
				return nil, fmt.Errorf("output truncated (stop_reason: max_tokens): response exceeded output token limit")
			}
			out.Trace = append(out.Trace, fmt.Sprintf("stop_reason=%s output_tokens=%d", ev.Delta.StopReason, ev.Usage.OutputTokens))
		}
	}
	if err := stream.Err(); err != nil {
		return nil, classifyError(err)
	}

	out.Text = text.String()
	return out, nil
}

func buildContentBlocks(input port.ExtractInput) ([]anthropic.ContentBlockParamUnion, error) {
	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)
	var blocks []anthropic.ContentBlockParamUnion

	switch input.ContentType {
	case "application/pdf":
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded}))
	case "image/jpeg", "image/png":
		blocks = append(blocks, anthropic.NewImageBlockBase64(input.ContentType, encoded))
	default:
		return nil, fmt.Errorf("unsupported content type for extraction: %s", input.ContentType)
	}

	blocks = append(blocks, anthropic.NewTextBlock(extraction.BuildInvoicePrompt(input.Strategy)))
	return blocks, nil
}

func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := 0
		if apiErr.Response != nil {
			retryAfter = extraction.ParseRetryAfterHeader(apiErr.Response.Header.Get("Retry-After"))
		}
		return extraction.NewRateLimitError(providerName, err, retryAfter)
	}
	return fmt.Errorf("calling anthropic API: %w", err)
}
