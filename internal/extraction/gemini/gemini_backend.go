package gemini

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"invoiceflow/internal/config"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/port"
)

const (
	defaultModel    = "gemini-2.5-flash"
	maxOutputTokens = 16384
	providerName    = "gemini"
)

// streamFunc matches genai's Models.GenerateContentStream.
type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// Backend implements port.ExtractionBackend using Google's Gemini API in
// streaming mode.
type Backend struct {
	model  string
	stream streamFunc
}

// NewBackend creates a Gemini-based extraction backend.
func NewBackend(ctx context.Context, cfg *config.ProviderConfig) (*Backend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout()},
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newBackend(cfg, client.Models.GenerateContentStream), nil
}

// Factory adapts NewBackend to extraction.ProviderFactory.
func Factory(cfg *config.ProviderConfig) (port.ExtractionBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini extraction backend: api key is not configured")
	}
	return NewBackend(context.Background(), cfg)
}

func newBackend(cfg *config.ProviderConfig, stream streamFunc) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Backend{model: model, stream: stream}
}

func (b *Backend) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	mimeType, err := toGeminiMimeType(input.ContentType)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(input.FileBytes, mimeType),
			genai.NewPartFromText(extraction.BuildInvoicePrompt(input.Strategy)),
		}, genai.RoleUser),
	}
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  maxOutputTokens,
	}

	var text strings.Builder
	out := &port.ExtractOutput{Model: b.model}
	for resp, err := range b.stream(ctx, b.model, contents, genCfg) {
		if err != nil {
			return nil, classifyError(err)
		}
		if resp == nil {
			continue
		}
		text.WriteString(resp.Text())
		if resp.ModelVersion != "" {
			out.Model = resp.ModelVersion
		}
		for _, c := range resp.Candidates {
			if c != nil && c.FinishReason != "" {
				out.Trace = append(out.Trace, "finish_reason="+string(c.FinishReason))
				if c.FinishReason == genai.FinishReasonMaxTokens {
					return nil, fmt.Errorf("output truncated (finish_reason: MAX_TOKENS): response exceeded output token limit")
				}
			}
		}
	}

	out.Text = text.String()
	return out, nil
}

func toGeminiMimeType(contentType string) (string, error) {
	switch contentType {
	case "application/pdf", "image/jpeg", "image/png":
		return contentType, nil
	default:
		return "", fmt.Errorf("unsupported content type for extraction: %s", contentType)
	}
}

// classifyError maps quota errors to extraction.RateLimitError.
func classifyError(err error) error {
	rateLimited := false
	switch apiErr := err.(type) {
	case genai.APIError:
		rateLimited = apiErr.Code == http.StatusTooManyRequests
	case *genai.APIError:
		rateLimited = apiErr.Code == http.StatusTooManyRequests
	default:
		msg := err.Error()
		rateLimited = strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429")
	}
	if rateLimited {
		return extraction.NewRateLimitError(providerName, err, 0)
	}
	return fmt.Errorf("calling gemini API: %w", err)
}
