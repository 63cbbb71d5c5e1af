// Package evaluator invokes specialist evaluators over a streaming backend
// and turns each call into a domain.EvaluationOutcome.
package evaluator

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"invoiceflow/internal/domain"
)

// Evaluator names shipped in the default catalog.
const (
	Compliance     = "compliance"
	Validation     = "validation"
	FraudDetection = "fraud_detection"
)

// Entry describes how to reach one evaluator.
type Entry struct {
	Name                string
	CapabilityID        string
	CapabilityVersionID string
	Instruction         string
	Supported           bool
}

type entryFile struct {
	CapabilityID        string `yaml:"capability_id"`
	CapabilityVersionID string `yaml:"capability_version_id"`
	Instruction         string `yaml:"instruction"`
	Supported           *bool  `yaml:"supported"`
}

type catalogFile struct {
	Evaluators map[string]entryFile `yaml:"evaluators"`
}

// Catalog maps evaluator names to their capability identifiers. It is
// read-only after construction.
type Catalog struct {
	entries map[string]Entry
}

// NewCatalog builds a catalog from entries keyed by Entry.Name.
func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		c.entries[e.Name] = e
	}
	return c
}

// DefaultCatalog returns the built-in evaluators. fraud_detection is known
// but has no backing capability yet.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Entry{
			Name:                Compliance,
			CapabilityID:        "invoice-compliance",
			CapabilityVersionID: "v1",
			Instruction:         "Review the invoice for regulatory and policy compliance. Respond with a JSON object containing \"compliant\" (bool), \"findings\" (array of strings) and \"risk_level\" (low, medium or high).",
			Supported:           true,
		},
		Entry{
			Name:                Validation,
			CapabilityID:        "invoice-final-validation",
			CapabilityVersionID: "v1",
			Instruction:         "Perform a final validation of the extracted invoice. Respond with a JSON object containing \"approved\" (bool), \"score\" (0 to 1) and \"notes\" (array of strings).",
			Supported:           true,
		},
		Entry{
			Name:      FraudDetection,
			Supported: false,
		},
	)
}

// LoadCatalog reads a YAML catalog file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evaluator catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document of the form
//
//	evaluators:
//	  compliance:
//	    capability_id: invoice-compliance
//	    capability_version_id: v1
//	    instruction: "..."
//	    supported: true
//
// supported defaults to true when omitted.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing evaluator catalog: %w", err)
	}
	c := &Catalog{entries: make(map[string]Entry, len(f.Evaluators))}
	for name, ef := range f.Evaluators {
		supported := ef.Supported == nil || *ef.Supported
		if supported && ef.CapabilityID == "" {
			return nil, fmt.Errorf("evaluator %q: capability_id is required", name)
		}
		c.entries[name] = Entry{
			Name:                name,
			CapabilityID:        ef.CapabilityID,
			CapabilityVersionID: ef.CapabilityVersionID,
			Instruction:         ef.Instruction,
			Supported:           supported,
		}
	}
	return c, nil
}

// Lookup returns the entry for name, supported or not.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Resolve returns the entry for a name that can actually be invoked.
func (c *Catalog) Resolve(name string) (Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("evaluator %q: %w", name, domain.ErrUnknownCapability)
	}
	if !e.Supported {
		return Entry{}, fmt.Errorf("evaluator %q is not supported: %w", name, domain.ErrUnknownCapability)
	}
	return e, nil
}

// Names returns every catalog name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
