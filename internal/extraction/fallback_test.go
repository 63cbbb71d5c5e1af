package extraction_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/extraction"
	"invoiceflow/internal/port"
	"invoiceflow/mocks"
)

func fallbackOutput(model string) *port.ExtractOutput {
	return &port.ExtractOutput{Text: sampleResponse, Model: model}
}

var fallbackInput = port.ExtractInput{FileBytes: []byte("test"), ContentType: "application/pdf", CorrelationID: "c-1"}

func TestFallbackBackend_FirstSucceeds(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(fallbackOutput("gemini"), nil)

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})
	out, err := fb.Extract(context.Background(), fallbackInput)

	assert.NoError(t, err)
	assert.Equal(t, "gemini", out.Model)
	assert.Equal(t, []string{"provider=gemini"}, out.Trace)
	b2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestFallbackBackend_FirstFails_SecondSucceeds(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, errors.New("generic error"))
	b2.On("Extract", mock.Anything, fallbackInput).Return(fallbackOutput("claude"), nil)

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})
	out, err := fb.Extract(context.Background(), fallbackInput)

	assert.NoError(t, err)
	assert.Equal(t, "claude", out.Model)
	assert.Equal(t, []string{"provider=claude", "fallback_from=gemini"}, out.Trace)
}

func TestFallbackBackend_AllRateLimited(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, extraction.NewRateLimitError("gemini", errors.New("429"), 60))
	b2.On("Extract", mock.Anything, fallbackInput).Return(nil, extraction.NewRateLimitError("claude", errors.New("429"), 30))

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})
	out, err := fb.Extract(context.Background(), fallbackInput)

	assert.Nil(t, out)
	var rlErr *extraction.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini,claude", rlErr.Provider)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)
}

func TestFallbackBackend_AllFail_NonRateLimit(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, errors.New("error 1"))
	b2.On("Extract", mock.Anything, fallbackInput).Return(nil, errors.New("error 2"))

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})
	out, err := fb.Extract(context.Background(), fallbackInput)

	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "no extraction backend could read")
	assert.Contains(t, err.Error(), "gemini: error 1")
	assert.Contains(t, err.Error(), "claude: error 2")

	var rlErr *extraction.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestFallbackBackend_MixedFailureIsNotRateLimit(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, extraction.NewRateLimitError("gemini", errors.New("429"), 60))
	b2.On("Extract", mock.Anything, fallbackInput).Return(nil, errors.New("unsupported document"))

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})
	out, err := fb.Extract(context.Background(), fallbackInput)

	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini: rate limited for 1m0s")
	assert.Contains(t, err.Error(), "claude: unsupported document")

	var rlErr *extraction.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
}

func TestFallbackBackend_CancelledContextStopsChain(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	ctx, cancel := context.WithCancel(context.Background())
	b1.On("Extract", mock.Anything, fallbackInput).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, errors.New("stream interrupted"))

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})
	out, err := fb.Extract(ctx, fallbackInput)

	assert.Nil(t, out)
	assert.True(t, errors.Is(err, context.Canceled))
	b2.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestFallbackBackend_SkipsOpenCircuit(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, extraction.NewRateLimitError("gemini", errors.New("429"), 60)).Once()
	b2.On("Extract", mock.Anything, fallbackInput).Return(fallbackOutput("claude"), nil)

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})

	_, err := fb.Extract(context.Background(), fallbackInput)
	require.NoError(t, err)
	out, err := fb.Extract(context.Background(), fallbackInput)
	require.NoError(t, err)

	assert.Equal(t, "claude", out.Model)
	assert.Equal(t, []string{"provider=claude", "fallback_from=gemini"}, out.Trace)
	b1.AssertNumberOfCalls(t, "Extract", 1)
}

func TestFallbackBackend_CircuitAutoCloses(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, extraction.NewRateLimitError("gemini", errors.New("429"), 1)).Once()
	b2.On("Extract", mock.Anything, fallbackInput).Return(fallbackOutput("claude"), nil).Once()

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})

	out, err := fb.Extract(context.Background(), fallbackInput)
	require.NoError(t, err)
	assert.Equal(t, "claude", out.Model)

	time.Sleep(1100 * time.Millisecond)

	b1.On("Extract", mock.Anything, fallbackInput).Return(fallbackOutput("gemini"), nil).Once()
	out, err = fb.Extract(context.Background(), fallbackInput)
	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Model)
}

func TestFallbackBackend_ConcurrentSafety(t *testing.T) {
	b1 := new(mocks.MockExtractionBackend)
	b2 := new(mocks.MockExtractionBackend)

	b1.On("Extract", mock.Anything, fallbackInput).Return(nil, extraction.NewRateLimitError("gemini", errors.New("429"), 5)).Maybe()
	b2.On("Extract", mock.Anything, fallbackInput).Return(fallbackOutput("claude"), nil).Maybe()

	fb := extraction.NewFallbackBackend([]port.ExtractionBackend{b1, b2}, []string{"gemini", "claude"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := fb.Extract(context.Background(), fallbackInput)
			assert.NoError(t, err)
			assert.NotNil(t, out)
		}()
	}
	wg.Wait()
}
