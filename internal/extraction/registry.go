package extraction

import (
	"fmt"

	"invoiceflow/internal/config"
	"invoiceflow/internal/port"
)

// ProviderFactory creates an ExtractionBackend from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.ExtractionBackend, error)

// registry of extraction provider factories, populated by the entry point via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an extraction provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewBackend creates an ExtractionBackend from a provider config using the registered factory.
func NewBackend(cfg *config.ProviderConfig) (port.ExtractionBackend, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewBackendChain builds the primary backend and, when configured, wraps it
// with the secondary in a FallbackBackend.
func NewBackendChain(cfg *config.ExtractionConfig) (port.ExtractionBackend, error) {
	primary, err := NewBackend(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("creating primary extraction backend: %w", err)
	}
	secondaryCfg := cfg.SecondaryConfig()
	if secondaryCfg == nil {
		return primary, nil
	}
	secondary, err := NewBackend(secondaryCfg)
	if err != nil {
		return nil, fmt.Errorf("creating secondary extraction backend: %w", err)
	}
	return NewFallbackBackend(
		[]port.ExtractionBackend{primary, secondary},
		[]string{cfg.Primary.Provider, secondaryCfg.Provider},
	), nil
}
