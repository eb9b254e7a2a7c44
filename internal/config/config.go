package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the peerdex API configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Similarity    SimilarityConfig    `yaml:"similarity"`
	Cache         CacheConfig         `yaml:"cache"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	BasePath        string `yaml:"base_path"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
}

// ElasticsearchConfig holds search engine connection settings.
type ElasticsearchConfig struct {
	Addrs              []string `yaml:"addrs"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	CACertPath         string   `yaml:"ca_cert_path"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
	Index              string   `yaml:"index"`
	RequestTimeoutSec  int      `yaml:"request_timeout_sec"`
	StatusAttempts     int      `yaml:"status_attempts"`
	ReadinessTimeout   int      `yaml:"readiness_timeout_sec"`
}

// SimilarityConfig holds query shaping and pagination settings.
type SimilarityConfig struct {
	DefaultPageSize     int      `yaml:"default_page_size"`
	MaxPageSize         int      `yaml:"max_page_size"`
	KNNNumCandidates    int      `yaml:"knn_num_candidates"`
	MLTMaxQueryTerms    int      `yaml:"mlt_max_query_terms"`
	MLTMinTermFreq      int      `yaml:"mlt_min_term_freq"`
	IndustriesBoost     float64  `yaml:"industries_boost"`
	SemanticBoost       float64  `yaml:"semantic_boost"`
	SeedField           string   `yaml:"seed_field"`
	ExcludeSourceFields []string `yaml:"exclude_source_fields"`
	// StrictErrors turns index failures after seed resolution into 503 instead of an empty page.
	StrictErrors bool `yaml:"strict_errors"`
}

// CacheConfig holds the optional Valkey/Redis result cache settings.
type CacheConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
}

// EmbeddingConfig holds the provider used by ingestion.
type EmbeddingConfig struct {
	Provider            string  `yaml:"provider"`
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	Dimensions          int     `yaml:"dimensions"`
	DocumentInstruction string  `yaml:"document_instruction"`
	RequestsPerSecond   float64 `yaml:"requests_per_second"`
}

// IngestConfig holds the background index build settings.
type IngestConfig struct {
	Enabled          bool   `yaml:"enabled"`
	DataDir          string `yaml:"data_dir"`
	CompaniesFile    string `yaml:"companies_file"`
	IndustriesFile   string `yaml:"industries_file"`
	SpecialitiesFile string `yaml:"specialities_file"`
	Workers          int    `yaml:"workers"`
	BatchSize        int    `yaml:"batch_size"`
	InferenceID      string `yaml:"inference_id"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, expanding ${VAR} references, then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.BasePath == "" {
		c.HTTP.BasePath = "/v1"
	}
	c.HTTP.BasePath = "/" + strings.Trim(c.HTTP.BasePath, "/")
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Elasticsearch.Username == "" {
		c.Elasticsearch.Username = "elastic"
	}
	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = "companies"
	}
	if c.Elasticsearch.RequestTimeoutSec <= 0 {
		c.Elasticsearch.RequestTimeoutSec = 600
	}
	if c.Elasticsearch.StatusAttempts <= 0 {
		c.Elasticsearch.StatusAttempts = 2
	}
	if c.Elasticsearch.ReadinessTimeout <= 0 {
		c.Elasticsearch.ReadinessTimeout = 30
	}

	c.Similarity.applyDefaults()

	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}

	if c.Ingest.DataDir == "" {
		c.Ingest.DataDir = "data"
	}
	if c.Ingest.CompaniesFile == "" {
		c.Ingest.CompaniesFile = "companies.csv"
	}
	if c.Ingest.IndustriesFile == "" {
		c.Ingest.IndustriesFile = "company_industries.csv"
	}
	if c.Ingest.SpecialitiesFile == "" {
		c.Ingest.SpecialitiesFile = "company_specialities.csv"
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 500
	}
	if c.Ingest.InferenceID == "" {
		c.Ingest.InferenceID = ".elser-2-elasticsearch"
	}
}

func (s *SimilarityConfig) applyDefaults() {
	if s.DefaultPageSize <= 0 {
		s.DefaultPageSize = 10
	}
	if s.MaxPageSize <= 0 {
		s.MaxPageSize = 100
	}
	if s.KNNNumCandidates <= 0 {
		s.KNNNumCandidates = 100
	}
	if s.MLTMaxQueryTerms <= 0 {
		s.MLTMaxQueryTerms = 12
	}
	if s.MLTMinTermFreq <= 0 {
		s.MLTMinTermFreq = 1
	}
	if s.IndustriesBoost <= 0 {
		s.IndustriesBoost = 2.0
	}
	if s.SemanticBoost <= 0 {
		s.SemanticBoost = 1.5
	}
	if s.SeedField == "" {
		s.SeedField = "company_id"
	}
	if s.ExcludeSourceFields == nil {
		s.ExcludeSourceFields = []string{"full_description_embedding"}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Elasticsearch.Addrs) == 0 {
		return fmt.Errorf("elasticsearch.addrs is required")
	}
	if c.Similarity.DefaultPageSize > c.Similarity.MaxPageSize {
		return fmt.Errorf(
			"similarity.default_page_size (%d) exceeds similarity.max_page_size (%d)",
			c.Similarity.DefaultPageSize, c.Similarity.MaxPageSize,
		)
	}
	// k must never exceed num_candidates for the knn query to be accepted.
	if c.Similarity.MaxPageSize > c.Similarity.KNNNumCandidates {
		return fmt.Errorf(
			"similarity.max_page_size (%d) exceeds similarity.knn_num_candidates (%d)",
			c.Similarity.MaxPageSize, c.Similarity.KNNNumCandidates,
		)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache.enabled is true")
	}
	if c.Ingest.Enabled && c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required when ingest.enabled is true")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
