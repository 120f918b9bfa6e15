package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Edge Case Tests - scenarios that could cause silent failures or
// unexpected behavior in config merging, validation, and persistence.

func TestLoad_ZeroValuesNotMerged(t *testing.T) {
	// Given: config with explicit zero values for fields whose zero value
	// is indistinguishable from "not set" in the merge-non-zero scheme
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	configContent := `
version: 1
search:
  default_limit: 0
  max_limit: 0
embeddings:
  provider: ollama
`
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: defaults are kept (zero values don't override)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
}

func TestLoad_OutOfRangeWeight_Validated(t *testing.T) {
	// Given: a config with a weight outside [0,1]
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("CONCEPTRAG_BM25_WEIGHT", "1.5")

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: validation error is returned
	require.Error(t, err)
	require.Nil(t, cfg)
	assert.Contains(t, err.Error(), "bm25_weight")
}

func TestLoad_MaxLimitBelowDefaultLimit_Validated(t *testing.T) {
	cfg := NewConfig()
	cfg.LLM.APIKey = "test-key"
	cfg.Search.DefaultLimit = 50
	cfg.Search.MaxLimit = 10

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_limit")
}

func TestLoad_ParallelOutOfRange_Validated(t *testing.T) {
	cfg := NewConfig()
	cfg.LLM.APIKey = "test-key"
	cfg.Enrichment.Parallel = 25

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parallel")
}

func TestLoad_UnknownTransport_Validated(t *testing.T) {
	cfg := NewConfig()
	cfg.LLM.APIKey = "test-key"
	cfg.Server.Transport = "carrier-pigeon"

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport")
}

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("Test requires non-root user")
	}

	// Given: a config file with no read permissions
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	configPath := filepath.Join(tmpDir, "conceptrag.yaml")
	err := os.WriteFile(configPath, []byte("version: 1"), 0o000)
	require.NoError(t, err)
	defer func() { _ = os.Chmod(configPath, 0o644) }()

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: error should be returned
	require.Error(t, err, "Load should fail for unreadable config file")
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read", "Error should mention read failure")
}

func TestConfig_JSON_RoundTrip(t *testing.T) {
	// Given: a configuration with custom values. The API key is
	// yaml/json-excluded so it must not appear in the round trip.
	cfg := NewConfig()
	cfg.LLM.APIKey = "super-secret"
	cfg.Search.DefaultLimit = 25
	cfg.Search.BM25Weight = 0.4
	cfg.Embeddings.Provider = "static"

	// When: marshaling to JSON and back
	data, err := jsonMarshal(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret")

	var parsed Config
	err = jsonUnmarshal(data, &parsed)
	require.NoError(t, err)

	// Then: all JSON-accessible values are preserved, the secret is not
	assert.Equal(t, 25, parsed.Search.DefaultLimit)
	assert.Equal(t, "static", parsed.Embeddings.Provider)
	assert.Equal(t, 0.4, parsed.Search.BM25Weight)
	assert.Empty(t, parsed.LLM.APIKey)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	invalidJSON := []byte("{invalid json")

	var cfg Config
	err := jsonUnmarshal(invalidJSON, &cfg)

	require.Error(t, err, "Unmarshal should fail for invalid JSON")
}

func TestConfig_IndexWorkers_FallsBackToCPUCount(t *testing.T) {
	cfg := NewConfig()
	cfg.Enrichment.Parallel = 0

	assert.Greater(t, cfg.IndexWorkers(), 0)
}

func TestConfig_IndexWorkers_UsesConfiguredParallelism(t *testing.T) {
	cfg := NewConfig()
	cfg.Enrichment.Parallel = 6

	assert.Equal(t, 6, cfg.IndexWorkers())
}
