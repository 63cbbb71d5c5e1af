package evaluator_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoiceflow/internal/domain"
	"invoiceflow/internal/evaluator"
)

func TestDefaultCatalog(t *testing.T) {
	c := evaluator.DefaultCatalog()

	assert.Equal(t, []string{"compliance", "fraud_detection", "validation"}, c.Names())

	e, err := c.Resolve(evaluator.Compliance)
	require.NoError(t, err)
	assert.Equal(t, "invoice-compliance", e.CapabilityID)

	_, err = c.Resolve(evaluator.FraudDetection)
	assert.True(t, errors.Is(err, domain.ErrUnknownCapability))

	fd, ok := c.Lookup(evaluator.FraudDetection)
	assert.True(t, ok)
	assert.False(t, fd.Supported)

	_, err = c.Resolve("sentiment")
	assert.True(t, errors.Is(err, domain.ErrUnknownCapability))
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
evaluators:
  compliance:
    capability_id: cap-1
    capability_version_id: v2
    instruction: check it
  fraud_detection:
    supported: false
`)
	c, err := evaluator.ParseCatalog(data)
	require.NoError(t, err)

	e, err := c.Resolve("compliance")
	require.NoError(t, err)
	assert.Equal(t, evaluator.Entry{
		Name:                "compliance",
		CapabilityID:        "cap-1",
		CapabilityVersionID: "v2",
		Instruction:         "check it",
		Supported:           true,
	}, e)

	_, err = c.Resolve("fraud_detection")
	assert.Error(t, err)
}

func TestParseCatalog_Errors(t *testing.T) {
	_, err := evaluator.ParseCatalog([]byte("evaluators: [not, a, map]"))
	assert.Error(t, err)

	_, err = evaluator.ParseCatalog([]byte("evaluators:\n  compliance:\n    instruction: x\n"))
	assert.ErrorContains(t, err, "capability_id is required")
}

func TestLoadCatalog(t *testing.T) {
	c, err := evaluator.LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Names(), 3)

	path := filepath.Join(t.TempDir(), "evaluators.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evaluators:\n  audit:\n    capability_id: audit-1\n"), 0o600))
	c, err = evaluator.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit"}, c.Names())

	_, err = evaluator.LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
