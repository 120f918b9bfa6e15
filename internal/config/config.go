package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete conceptrag configuration, loaded from defaults,
// an optional project file, and environment variable overrides in that
// order of increasing precedence.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	LLM        LLMConfig        `yaml:"llm" json:"llm"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Enrichment EnrichmentConfig `yaml:"enrichment" json:"enrichment"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// DatabaseConfig locates the persisted collections and checkpoint file.
type DatabaseConfig struct {
	Path           string `yaml:"path" json:"path"`
	VectorPath     string `yaml:"vector_path" json:"vector_path"`
	CheckpointPath string `yaml:"checkpoint_path" json:"checkpoint_path"`
}

// LLMConfig configures the concept-extraction and category-summary model.
type LLMConfig struct {
	APIKey           string        `yaml:"-" json:"-"` // never persisted to disk; env var only
	BaseURL          string        `yaml:"base_url" json:"base_url"`
	ConceptModel     string        `yaml:"concept_model" json:"concept_model"`
	SummaryModel     string        `yaml:"summary_model" json:"summary_model"`
	VisionModel      string        `yaml:"vision_model" json:"vision_model"`
	MaxTokens        int64         `yaml:"max_tokens" json:"max_tokens"`
	Temperature      float64       `yaml:"temperature" json:"temperature"`
	RequestTimeout   time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MinRequestPeriod time.Duration `yaml:"min_request_period" json:"min_request_period"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
}

// SearchConfig configures the hybrid ranking engine's tunables — score
// weights are externally configurable rather than hardcoded.
type SearchConfig struct {
	VectorWeight  float64 `yaml:"vector_weight" json:"vector_weight"`
	BM25Weight    float64 `yaml:"bm25_weight" json:"bm25_weight"`
	TitleWeight   float64 `yaml:"title_weight" json:"title_weight"`
	ConceptWeight float64 `yaml:"concept_weight" json:"concept_weight"`
	WordNetWeight float64 `yaml:"wordnet_weight" json:"wordnet_weight"`
	DefaultLimit  int     `yaml:"default_limit" json:"default_limit"`
	MaxLimit      int     `yaml:"max_limit" json:"max_limit"`
	WithWordNet   bool    `yaml:"with_wordnet" json:"with_wordnet"`
}

// EnrichmentConfig configures the seeding/enrichment pipeline.
type EnrichmentConfig struct {
	Parallel               int  `yaml:"parallel" json:"parallel"`
	MaxDocs                int  `yaml:"max_docs" json:"max_docs"`
	RetryFailed            bool `yaml:"retry_failed" json:"retry_failed"`
	EmbedConceptsFromText  bool `yaml:"embed_concepts_from_context" json:"embed_concepts_from_context"`
}

// ServerConfig configures the MCP server and its ambient HTTP surface.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	HTTPAddr  string `yaml:"http_addr" json:"http_addr"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Path:           "conceptrag.db",
			VectorPath:     "conceptrag.vectors",
			CheckpointPath: "conceptrag.checkpoint.json",
		},
		LLM: LLMConfig{
			ConceptModel:     "claude-sonnet-4-5-20250929",
			SummaryModel:     "claude-sonnet-4-5-20250929",
			VisionModel:      "claude-sonnet-4-5-20250929",
			MaxTokens:        4096,
			Temperature:      0.2,
			RequestTimeout:   30 * time.Second,
			MinRequestPeriod: 3000 * time.Millisecond,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "",
			Model:      "",
			Dimensions: 0,
			BatchSize:  32,
		},
		Search: SearchConfig{
			VectorWeight:  0.25,
			BM25Weight:    0.25,
			TitleWeight:   0.20,
			ConceptWeight: 0.20,
			WordNetWeight: 0.10,
			DefaultLimit:  10,
			MaxLimit:      100,
			WithWordNet:   false,
		},
		Enrichment: EnrichmentConfig{
			Parallel:              4,
			MaxDocs:                0, // 0 means unbounded
			RetryFailed:            false,
			EmbedConceptsFromText:  false,
		},
		Server: ServerConfig{
			Transport: "stdio",
			HTTPAddr:  ":8787",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath follows the XDG Base Directory spec:
//   - $XDG_CONFIG_HOME/conceptrag/config.yaml (if set)
//   - ~/.config/conceptrag/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "conceptrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "conceptrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "conceptrag", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load resolves configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/conceptrag/config.yaml)
//  3. Project config (conceptrag.yaml in dir)
//  4. Environment variables (CONCEPTRAG_*)
//
// Startup validation failure (missing required env vars, out-of-range
// values) is reported here rather than deferred to first use.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "conceptrag.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, "conceptrag.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Database.VectorPath != "" {
		c.Database.VectorPath = other.Database.VectorPath
	}
	if other.Database.CheckpointPath != "" {
		c.Database.CheckpointPath = other.Database.CheckpointPath
	}

	if other.LLM.BaseURL != "" {
		c.LLM.BaseURL = other.LLM.BaseURL
	}
	if other.LLM.ConceptModel != "" {
		c.LLM.ConceptModel = other.LLM.ConceptModel
	}
	if other.LLM.SummaryModel != "" {
		c.LLM.SummaryModel = other.LLM.SummaryModel
	}
	if other.LLM.VisionModel != "" {
		c.LLM.VisionModel = other.LLM.VisionModel
	}
	if other.LLM.MaxTokens != 0 {
		c.LLM.MaxTokens = other.LLM.MaxTokens
	}
	if other.LLM.Temperature != 0 {
		c.LLM.Temperature = other.LLM.Temperature
	}
	if other.LLM.RequestTimeout != 0 {
		c.LLM.RequestTimeout = other.LLM.RequestTimeout
	}
	if other.LLM.MinRequestPeriod != 0 {
		c.LLM.MinRequestPeriod = other.LLM.MinRequestPeriod
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}

	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.TitleWeight != 0 {
		c.Search.TitleWeight = other.Search.TitleWeight
	}
	if other.Search.ConceptWeight != 0 {
		c.Search.ConceptWeight = other.Search.ConceptWeight
	}
	if other.Search.WordNetWeight != 0 {
		c.Search.WordNetWeight = other.Search.WordNetWeight
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.WithWordNet {
		c.Search.WithWordNet = other.Search.WithWordNet
	}

	if other.Enrichment.Parallel != 0 {
		c.Enrichment.Parallel = other.Enrichment.Parallel
	}
	if other.Enrichment.MaxDocs != 0 {
		c.Enrichment.MaxDocs = other.Enrichment.MaxDocs
	}
	if other.Enrichment.RetryFailed {
		c.Enrichment.RetryFailed = other.Enrichment.RetryFailed
	}
	if other.Enrichment.EmbedConceptsFromText {
		c.Enrichment.EmbedConceptsFromText = other.Enrichment.EmbedConceptsFromText
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.HTTPAddr != "" {
		c.Server.HTTPAddr = other.Server.HTTPAddr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies CONCEPTRAG_* environment variable overrides,
// the highest-precedence configuration layer. Unknown variables are
// ignored; missing required variables are caught by Validate.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CONCEPTRAG_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("CONCEPTRAG_VECTOR_PATH"); v != "" {
		c.Database.VectorPath = v
	}
	if v := os.Getenv("CONCEPTRAG_CHECKPOINT_PATH"); v != "" {
		c.Database.CheckpointPath = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CONCEPTRAG_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CONCEPTRAG_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("CONCEPTRAG_LLM_CONCEPT_MODEL"); v != "" {
		c.LLM.ConceptModel = v
	}
	if v := os.Getenv("CONCEPTRAG_LLM_SUMMARY_MODEL"); v != "" {
		c.LLM.SummaryModel = v
	}
	if v := os.Getenv("CONCEPTRAG_LLM_VISION_MODEL"); v != "" {
		c.LLM.VisionModel = v
	}
	if v := os.Getenv("CONCEPTRAG_LLM_MIN_REQUEST_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.LLM.MinRequestPeriod = d
		}
	}

	if v := os.Getenv("CONCEPTRAG_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CONCEPTRAG_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}

	if v := os.Getenv("CONCEPTRAG_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("CONCEPTRAG_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("CONCEPTRAG_TITLE_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil {
			c.Search.TitleWeight = w
		}
	}
	if v := os.Getenv("CONCEPTRAG_CONCEPT_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil {
			c.Search.ConceptWeight = w
		}
	}
	if v := os.Getenv("CONCEPTRAG_WORDNET_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil {
			c.Search.WordNetWeight = w
		}
	}

	if v := os.Getenv("CONCEPTRAG_PARALLEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Enrichment.Parallel = n
		}
	}
	if v := os.Getenv("CONCEPTRAG_WITH_WORDNET"); v != "" {
		c.Search.WithWordNet = strings.ToLower(v) == "true" || v == "1"
	}

	if v := os.Getenv("CONCEPTRAG_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("CONCEPTRAG_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("CONCEPTRAG_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate checks the configuration for consistency: missing required
// variables cause startup validation failure rather than a deferred panic.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required: set ANTHROPIC_API_KEY or CONCEPTRAG_LLM_API_KEY")
	}

	for name, w := range map[string]float64{
		"vector_weight":  c.Search.VectorWeight,
		"bm25_weight":    c.Search.BM25Weight,
		"title_weight":   c.Search.TitleWeight,
		"concept_weight": c.Search.ConceptWeight,
		"wordnet_weight": c.Search.WordNetWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("search.%s must be between 0 and 1, got %f", name, w)
		}
	}

	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit must be >= search.default_limit")
	}

	if c.Enrichment.Parallel < 1 || c.Enrichment.Parallel > 20 {
		return fmt.Errorf("enrichment.parallel must be between 1 and 20, got %d", c.Enrichment.Parallel)
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML persists the configuration (minus the never-serialized API key).
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file, if any.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Weights projects the search section into search.Weights.
func (c *Config) Weights() (vector, bm25, title, concept, wordnet float64) {
	return c.Search.VectorWeight, c.Search.BM25Weight, c.Search.TitleWeight, c.Search.ConceptWeight, c.Search.WordNetWeight
}

// IndexWorkers returns a sane default parallelism when Enrichment.Parallel
// is unset, falling back to the host's CPU count.
func (c *Config) IndexWorkers() int {
	if c.Enrichment.Parallel > 0 {
		return c.Enrichment.Parallel
	}
	return runtime.NumCPU()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

