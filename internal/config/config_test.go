package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)

	assert.Equal(t, 0.25, cfg.Search.VectorWeight)
	assert.Equal(t, 0.25, cfg.Search.BM25Weight)
	assert.Equal(t, 0.20, cfg.Search.TitleWeight)
	assert.Equal(t, 0.20, cfg.Search.ConceptWeight)
	assert.Equal(t, 0.10, cfg.Search.WordNetWeight)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.False(t, cfg.Search.WithWordNet)

	assert.Equal(t, "", cfg.Embeddings.Provider)
	assert.Equal(t, 32, cfg.Embeddings.BatchSize)

	assert.Equal(t, 4, cfg.Enrichment.Parallel)
	assert.Equal(t, 0, cfg.Enrichment.MaxDocs)

	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestConfig_VersionDefaultsToOne(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1, cfg.Version)
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	// Given: a directory with no conceptrag.yaml
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: defaults are returned without error
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 0.25, cfg.Search.BM25Weight)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	// Given: a directory with conceptrag.yaml
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	configContent := `
version: 1
search:
  bm25_weight: 0.4
  vector_weight: 0.3
  default_limit: 25
`
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: all overrides are applied
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Search.BM25Weight)
	assert.Equal(t, 0.3, cfg.Search.VectorWeight)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	// Given: a directory with conceptrag.yml (alternative extension)
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	configContent := `
version: 1
embeddings:
  provider: static
`
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yml"), []byte(configContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: .yml file is recognized
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	// Given: both .yaml and .yml exist
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	yamlContent := "version: 1\nembeddings:\n  provider: ollama\n"
	ymlContent := "version: 1\nembeddings:\n  provider: static\n"
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yaml"), []byte(yamlContent), 0o644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpDir, "conceptrag.yml"), []byte(ymlContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: .yaml takes precedence
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	// Given: invalid YAML syntax
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	invalidContent := "version: 1\nsearch:\n  bm25_weight: [invalid yaml syntax\n"
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yaml"), []byte(invalidContent), 0o644)
	require.NoError(t, err)

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: error is returned with a clear message
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoad_MissingAPIKey_ReturnsValidationError(t *testing.T) {
	// Given: no ANTHROPIC_API_KEY set
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("CONCEPTRAG_LLM_API_KEY", "")

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: startup validation fails
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "api key")
}

func TestLoad_EnvVarOverridesProvider(t *testing.T) {
	// Given: a config file with ollama and env var with static
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	configContent := "version: 1\nembeddings:\n  provider: ollama\n"
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)
	t.Setenv("CONCEPTRAG_EMBEDDINGS_PROVIDER", "static")

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: env var takes precedence
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_EnvVarOverridesLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("CONCEPTRAG_LOG_LEVEL", "debug")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
}

func TestLoad_EnvVarOverridesTransport(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("CONCEPTRAG_TRANSPORT", "sse")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sse", cfg.Server.Transport)
}

func TestLoad_EnvVarOverridesSearchWeights(t *testing.T) {
	// Given: YAML config with weights and env var override
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	configContent := "version: 1\nsearch:\n  bm25_weight: 0.4\n"
	err := os.WriteFile(filepath.Join(tmpDir, "conceptrag.yaml"), []byte(configContent), 0o644)
	require.NoError(t, err)
	t.Setenv("CONCEPTRAG_BM25_WEIGHT", "0.5")

	// When: loading configuration
	cfg, err := Load(tmpDir)

	// Then: env var takes precedence over YAML
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
}

func TestLoad_AnthropicAPIKeyEnvVar_IsPicked(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)
}

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	path := GetUserConfigPath()

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	expected := filepath.Join(home, ".config", "conceptrag", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()

	expected := filepath.Join(customConfig, "conceptrag", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestGetUserConfigDir_ReturnsParentOfConfigPath(t *testing.T) {
	dir := GetUserConfigDir()
	path := GetUserConfigPath()

	assert.Equal(t, filepath.Dir(path), dir)
}

func TestUserConfigExists_ReturnsFalseWhenMissing(t *testing.T) {
	emptyDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", emptyDir)

	assert.False(t, UserConfigExists())
}

func TestUserConfigExists_ReturnsTrueWhenPresent(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	appDir := filepath.Join(configDir, "conceptrag")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte("version: 1"), 0o644))

	assert.True(t, UserConfigExists())
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: both user and project configs exist
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	appDir := filepath.Join(configDir, "conceptrag")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  provider: ollama\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nembeddings:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "conceptrag.yaml"), []byte(projectConfig), 0o644))

	// When: loading configuration
	cfg, err := Load(projectDir)

	// Then: project config takes precedence, user config's provider survives
	require.NoError(t, err)
	assert.Equal(t, "project-model", cfg.Embeddings.Model)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("CONCEPTRAG_EMBEDDINGS_MODEL", "env-model")

	appDir := filepath.Join(configDir, "conceptrag")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	userConfig := "version: 1\nembeddings:\n  model: user-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(userConfig), 0o644))

	projectConfig := "version: 1\nembeddings:\n  model: project-model\n"
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, "conceptrag.yaml"), []byte(projectConfig), 0o644))

	cfg, err := Load(projectDir)

	require.NoError(t, err)
	assert.Equal(t, "env-model", cfg.Embeddings.Model)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := t.TempDir()
	projectDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)

	appDir := filepath.Join(configDir, "conceptrag")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	invalidConfig := "version: 1\nembeddings:\n  model: [invalid yaml\n"
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(invalidConfig), 0o644))

	cfg, err := Load(projectDir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "user config")
}
