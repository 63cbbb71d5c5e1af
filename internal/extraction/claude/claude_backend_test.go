package claude_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/config"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/extraction/claude"
	"invoiceflow/internal/port"
)

func newTestBackend(serverURL string) *claude.Backend {
	return claude.NewBackendWithEndpoint(&config.ProviderConfig{
		Provider:     "claude",
		APIKey:       "test-api-key",
		DefaultModel: "claude-sonnet-4-20250514",
		TimeoutSecs:  30,
	}, serverURL)
}

func writeSSE(w http.ResponseWriter, events ...[2]string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, ev := range events {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev[0], ev[1])
	}
}

func textDelta(text string) [2]string {
	b, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]any{"type": "text_delta", "text": text},
	})
	return [2]string{"content_block_delta", string(b)}
}

const messageStart = `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":10,"output_tokens":1}}}`

func TestClaudeBackend_Extract_StreamsChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))

		var reqBody map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, true, reqBody["stream"])

		messages := reqBody["messages"].([]any)
		content := messages[0].(map[string]any)["content"].([]any)
		require.Len(t, content, 2)
		assert.Equal(t, "document", content[0].(map[string]any)["type"])
		assert.Equal(t, "text", content[1].(map[string]any)["type"])

		writeSSE(w,
			[2]string{"message_start", messageStart},
			[2]string{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
			textDelta(`{"fields":{"invoice_number":`),
			textDelta(`{"value":"INV-1","confidence":0.9}}}`),
			[2]string{"content_block_stop", `{"type":"content_block_stop","index":0}`},
			[2]string{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":20}}`},
			[2]string{"message_stop", `{"type":"message_stop"}`},
		)
	}))
	defer server.Close()

	out, err := newTestBackend(server.URL).Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"fields":{"invoice_number":{"value":"INV-1","confidence":0.9}}}`, out.Text)
	assert.Equal(t, "claude-sonnet-4-20250514", out.Model)
	require.Len(t, out.Trace, 1)
	assert.True(t, strings.HasPrefix(out.Trace[0], "stop_reason=end_turn"))
}

func TestClaudeBackend_Extract_MaxTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeSSE(w,
			[2]string{"message_start", messageStart},
			textDelta(`{"fields":`),
			[2]string{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"max_tokens","stop_sequence":null},"usage":{"output_tokens":16384}}`},
		)
	}))
	defer server.Close()

	_, err := newTestBackend(server.URL).Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte{0xff, 0xd8},
		ContentType: "image/jpeg",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_tokens")
}

func TestClaudeBackend_Extract_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer server.Close()

	_, err := newTestBackend(server.URL).Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF-1.4"),
		ContentType: "application/pdf",
	})

	var rlErr *extraction.RateLimitError
	require.True(t, errors.As(err, &rlErr), "got %v", err)
	assert.Equal(t, "claude", rlErr.Provider)
	assert.Equal(t, 42*time.Second, rlErr.RetryAfter)
}

func TestClaudeBackend_Extract_UnsupportedContentType(t *testing.T) {
	_, err := newTestBackend("http://127.0.0.1:0").Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "text/plain",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestFactory_RequiresAPIKey(t *testing.T) {
	_, err := claude.Factory(&config.ProviderConfig{Provider: "claude"})
	assert.Error(t, err)
}
