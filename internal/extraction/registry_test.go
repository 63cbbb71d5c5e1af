package extraction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/config"
	"invoiceflow/internal/extraction"
	"invoiceflow/internal/port"
)

// stubBackend is a minimal ExtractionBackend for testing the registry.
type stubBackend struct {
	model string
}

func (s *stubBackend) Extract(_ context.Context, _ port.ExtractInput) (*port.ExtractOutput, error) {
	return &port.ExtractOutput{Model: s.model, Text: sampleResponse}, nil
}

func registerStub(name string) {
	extraction.RegisterProvider(name, func(cfg *config.ProviderConfig) (port.ExtractionBackend, error) {
		return &stubBackend{model: cfg.DefaultModel}, nil
	})
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	registerStub("test-provider")

	b, err := extraction.NewBackend(&config.ProviderConfig{Provider: "test-provider", DefaultModel: "test-model"})
	require.NoError(t, err)

	out, err := b.Extract(context.Background(), port.ExtractInput{})
	require.NoError(t, err)
	assert.Equal(t, "test-model", out.Model)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	b, err := extraction.NewBackend(&config.ProviderConfig{Provider: "nonexistent-provider-xyz"})

	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "unknown extraction provider")
}

func TestNewBackendChain(t *testing.T) {
	registerStub("chain-a")
	registerStub("chain-b")

	single, err := extraction.NewBackendChain(&config.ExtractionConfig{
		Primary: config.ProviderConfig{Provider: "chain-a", DefaultModel: "a"},
	})
	require.NoError(t, err)
	assert.IsType(t, &stubBackend{}, single)

	chained, err := extraction.NewBackendChain(&config.ExtractionConfig{
		Primary:   config.ProviderConfig{Provider: "chain-a", DefaultModel: "a"},
		Secondary: config.ProviderConfig{Provider: "chain-b", DefaultModel: "b"},
	})
	require.NoError(t, err)
	assert.IsType(t, &extraction.FallbackBackend{}, chained)

	_, err = extraction.NewBackendChain(&config.ExtractionConfig{
		Primary:   config.ProviderConfig{Provider: "chain-a"},
		Secondary: config.ProviderConfig{Provider: "missing"},
	})
	assert.Error(t, err)
}
