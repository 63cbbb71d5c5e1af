package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"invoiceflow/internal/config"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/port"
)

const (
	apiURL          = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o"
	maxOutputTokens = 16384
	providerName    = "openai"
)

// Backend implements port.ExtractionBackend using the OpenAI Chat Completions API.
type Backend struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewBackend creates an OpenAI-based extraction backend from a provider config.
func NewBackend(cfg *config.ProviderConfig) *Backend {
	return newBackend(cfg, apiURL)
}

// NewBackendWithEndpoint creates a backend pointing at a custom API endpoint (for testing).
func NewBackendWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Backend {
	return newBackend(cfg, endpoint)
}

// Factory adapts NewBackend to extraction.ProviderFactory.
func Factory(cfg *config.ProviderConfig) (port.ExtractionBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai extraction backend: api key is not configured")
	}
	return NewBackend(cfg), nil
}

func newBackend(cfg *config.ProviderConfig, endpoint string) *Backend {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Backend{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: cfg.Timeout()},
	}
}

type chatRequest struct {
	Model               string            `json:"model"`
	MaxCompletionTokens int               `json:"max_completion_tokens"`
	Messages            []chatMessage     `json:"messages"`
	ResponseFormat      map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type     string     `json:"type"`
	Text     string     `json:"text,omitempty"`
	File     *fileData  `json:"file,omitempty"`
	ImageURL *imageData `json:"image_url,omitempty"`
}

type fileData struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type imageData struct {
	URL string `json:"url"`
}

// chatResponse models the subset of the Chat Completions response used here.
type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (b *Backend) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	blocks, err := buildContentBlocks(input)
	if err != nil {
		return nil, fmt.Errorf("building content blocks: %w", err)
	}

	bodyBytes, err := json.Marshal(chatRequest{
		Model:               b.model,
		MaxCompletionTokens: maxOutputTokens,
		Messages:            []chatMessage{{Role: "user", Content: blocks}},
		ResponseFormat:      map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openai API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := extraction.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, extraction.NewRateLimitError(providerName, baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return b.parseResponse(respBody)
}

func buildContentBlocks(input port.ExtractInput) ([]contentBlock, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", input.ContentType, base64.StdEncoding.EncodeToString(input.FileBytes))
	var blocks []contentBlock

	switch input.ContentType {
	case "application/pdf":
		blocks = append(blocks, contentBlock{
			Type: "file",
			File: &fileData{Filename: "document.pdf", FileData: dataURI},
		})
	case "image/jpeg", "image/png":
		blocks = append(blocks, contentBlock{
			Type:     "image_url",
			ImageURL: &imageData{URL: dataURI},
		})
	default:
		return nil, fmt.Errorf("unsupported content type for extraction: %s", input.ContentType)
	}

	blocks = append(blocks, contentBlock{Type: "text", Text: extraction.BuildInvoicePrompt(input.Strategy)})
	return blocks, nil
}

// parseResponse returns the model text untouched; normalization into a
// StructuredDocument happens in the extraction adapter.
func (b *Backend) parseResponse(body []byte) (*port.ExtractOutput, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	model := resp.Model
	if model == "" {
		model = b.model
	}
	return &port.ExtractOutput{
		Text:  choice.Message.Content,
		Model: model,
		Trace: []string{"finish_reason=" + choice.FinishReason},
	}, nil
}
