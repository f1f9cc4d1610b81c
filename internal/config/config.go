// Package config provides configuration management for the reasoning
// engine server.
//
// Configuration can be loaded from multiple sources (in order of
// precedence):
// 1. Environment variables (highest priority)
// 2. Configuration file (JSON or YAML)
// 3. Default values (lowest priority)
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration.
type Config struct {
	Server      ServerConfig      `json:"server" yaml:"server"`
	Engine      EngineConfig      `json:"engine" yaml:"engine"`
	Storage     StorageConfig     `json:"storage" yaml:"storage"`
	Features    FeatureFlags      `json:"features" yaml:"features"`
	Performance PerformanceConfig `json:"performance" yaml:"performance"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}

// ServerConfig contains server-level configuration.
type ServerConfig struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Environment string `json:"environment" yaml:"environment"`
}

// HDCStrategy selects the vector-runtime backing used by the HDC-first
// engine variants (spec §4.11, §6).
type HDCStrategy string

const (
	// StrategyExact never consults the vector runtime: direct/rule/transitive
	// symbolic matching only.
	StrategyExact HDCStrategy = "exact"
	// StrategyDenseBinary uses the deterministic bipolar hypervector runtime.
	StrategyDenseBinary HDCStrategy = "dense-binary"
	// StrategySparsePolynomial uses the chromem-go-backed runtime for
	// large-vocabulary similarity search.
	StrategySparsePolynomial HDCStrategy = "sparse-polynomial"
)

// EngineConfig carries the reasoning-engine tuning surface: world-assumption
// toggles, step/time limits, and the threshold table consulted throughout
// internal/reasoners, internal/prover, internal/proofengine, internal/query,
// internal/hdc, internal/defaults and internal/abduction (spec §4.7, §6).
type EngineConfig struct {
	ClosedWorldAssumption bool        `json:"closed_world_assumption" yaml:"closed_world_assumption"`
	CanonicalizationEnabled bool      `json:"canonicalization_enabled" yaml:"canonicalization_enabled"`
	HDCStrategy           HDCStrategy `json:"hdc_strategy" yaml:"hdc_strategy"`
	VectorDimension       int         `json:"vector_dimension" yaml:"vector_dimension"`
	MaxProofSteps         int         `json:"max_proof_steps" yaml:"max_proof_steps"`
	MaxProofDepth         int         `json:"max_proof_depth" yaml:"max_proof_depth"`
	ProofTimeoutMillis    int         `json:"proof_timeout_millis" yaml:"proof_timeout_millis"`
	MaxAbductionResults   int         `json:"max_abduction_results" yaml:"max_abduction_results"`
	MaxCausalDepth        int         `json:"max_causal_depth" yaml:"max_causal_depth"`
	Thresholds            Thresholds  `json:"thresholds" yaml:"thresholds"`
}

// Thresholds is the strategy-ladder's numeric tuning table, named identically
// to spec §4.7's threshold list so every reasoner/prover consults the same
// configured values rather than ad-hoc literals.
type Thresholds struct {
	Similarity         float64 `json:"similarity" yaml:"similarity"`
	Verification       float64 `json:"verification" yaml:"verification"`
	StrongMatch        float64 `json:"strong_match" yaml:"strong_match"`
	VeryStrongMatch    float64 `json:"very_strong_match" yaml:"very_strong_match"`
	HDCMatch           float64 `json:"hdc_match" yaml:"hdc_match"`
	ConclusionMatch    float64 `json:"conclusion_match" yaml:"conclusion_match"`
	ConditionConfidence float64 `json:"condition_confidence" yaml:"condition_confidence"`
	ConfidenceDecay    float64 `json:"confidence_decay" yaml:"confidence_decay"`
	TransitiveBase     float64 `json:"transitive_base" yaml:"transitive_base"`
	TransitiveDecay    float64 `json:"transitive_decay" yaml:"transitive_decay"`
	RuleMatch          float64 `json:"rule_match" yaml:"rule_match"`
	RuleConfidence     float64 `json:"rule_confidence" yaml:"rule_confidence"`
	DirectMatch        float64 `json:"direct_match" yaml:"direct_match"`
	DefaultConfidence  float64 `json:"default_confidence" yaml:"default_confidence"`
	AnalogyMin         float64 `json:"analogy_min" yaml:"analogy_min"`
	AnalogyMax         float64 `json:"analogy_max" yaml:"analogy_max"`
	AnalogyDiscount    float64 `json:"analogy_discount" yaml:"analogy_discount"`
	BundleCommonScore  float64 `json:"bundle_common_score" yaml:"bundle_common_score"`
}

// DefaultThresholds returns the tuning table used absent any override.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Similarity:          0.75,
		Verification:        0.60,
		StrongMatch:         0.85,
		VeryStrongMatch:     0.95,
		HDCMatch:            0.80,
		ConclusionMatch:     0.80,
		ConditionConfidence: 0.70,
		ConfidenceDecay:     0.95,
		TransitiveBase:      0.95,
		TransitiveDecay:     0.90,
		RuleMatch:           0.75,
		RuleConfidence:      0.90,
		DirectMatch:         1.0,
		DefaultConfidence:   0.60,
		AnalogyMin:          0.50,
		AnalogyMax:          0.90,
		AnalogyDiscount:     0.70,
		BundleCommonScore:   0.50,
	}
}

// StorageConfig contains persistence-level configuration.
type StorageConfig struct {
	// Type selects the snapshot backend: "memory" (no persistence) or
	// "sqlite" (modernc.org/sqlite, grounded on internal/storage/sqlite.go).
	Type string `json:"type" yaml:"type"`
	// Path is the sqlite database file path when Type == "sqlite".
	Path string `json:"path" yaml:"path"`
	// GraphMirrorEnabled mirrors committed facts into Neo4j as an optional,
	// best-effort secondary index (spec §5: never blocks the primary path).
	GraphMirrorEnabled bool   `json:"graph_mirror_enabled" yaml:"graph_mirror_enabled"`
	Neo4jURI           string `json:"neo4j_uri" yaml:"neo4j_uri"`
	Neo4jUsername      string `json:"neo4j_username" yaml:"neo4j_username"`
	Neo4jPassword      string `json:"neo4j_password" yaml:"neo4j_password"`
}

// FeatureFlags controls which optional engine capabilities are enabled.
type FeatureFlags struct {
	AbductionEnabled         bool `json:"abduction_enabled" yaml:"abduction_enabled"`
	DefaultExceptionsEnabled bool `json:"default_exceptions_enabled" yaml:"default_exceptions_enabled"`
	ConstructivistLevels     bool `json:"constructivist_levels" yaml:"constructivist_levels"`
	HDCCandidatesEnabled     bool `json:"hdc_candidates_enabled" yaml:"hdc_candidates_enabled"`
	SearchTraceEnabled       bool `json:"search_trace_enabled" yaml:"search_trace_enabled"`
}

// PerformanceConfig contains performance tuning options.
type PerformanceConfig struct {
	MaxConcurrentProofs int `json:"max_concurrent_proofs" yaml:"max_concurrent_proofs"`
	CacheSize           int `json:"cache_size" yaml:"cache_size"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level            string `json:"level" yaml:"level"`
	Format           string `json:"format" yaml:"format"`
	EnableTimestamps bool   `json:"enable_timestamps" yaml:"enable_timestamps"`
}

// Default returns the default configuration with every stable feature
// enabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:        "hdcreasoner",
			Version:     "0.1.0",
			Environment: "development",
		},
		Engine: EngineConfig{
			ClosedWorldAssumption:   true,
			CanonicalizationEnabled: false,
			HDCStrategy:             StrategyDenseBinary,
			VectorDimension:         2048,
			MaxProofSteps:           500,
			MaxProofDepth:           25,
			ProofTimeoutMillis:      2000,
			MaxAbductionResults:     10,
			MaxCausalDepth:          6,
			Thresholds:              DefaultThresholds(),
		},
		Storage: StorageConfig{
			Type:               "memory",
			Path:               "",
			GraphMirrorEnabled: false,
		},
		Features: FeatureFlags{
			AbductionEnabled:         true,
			DefaultExceptionsEnabled: true,
			ConstructivistLevels:     true,
			HDCCandidatesEnabled:     true,
			SearchTraceEnabled:       true,
		},
		Performance: PerformanceConfig{
			MaxConcurrentProofs: 32,
			CacheSize:           1000,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Format:           "text",
			EnableTimestamps: true,
		},
	}
}

// Load loads configuration from environment variables and applies defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("config: failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a JSON or YAML file (selected by
// extension), applying environment overrides afterward.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse JSON config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("config: failed to load from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromEnv loads configuration from environment variables. Variables
// follow the pattern HDC_<SECTION>_<KEY>, e.g. HDC_ENGINE_CLOSED_WORLD_ASSUMPTION.
func (c *Config) loadFromEnv() error {
	if v := os.Getenv("HDC_SERVER_NAME"); v != "" {
		c.Server.Name = v
	}
	if v := os.Getenv("HDC_SERVER_ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}

	if v := os.Getenv("HDC_ENGINE_CLOSED_WORLD_ASSUMPTION"); v != "" {
		c.Engine.ClosedWorldAssumption = parseBool(v)
	}
	if v := os.Getenv("HDC_ENGINE_CANONICALIZATION_ENABLED"); v != "" {
		c.Engine.CanonicalizationEnabled = parseBool(v)
	}
	if v := os.Getenv("HDC_ENGINE_HDC_STRATEGY"); v != "" {
		c.Engine.HDCStrategy = HDCStrategy(v)
	}
	if v := os.Getenv("HDC_ENGINE_VECTOR_DIMENSION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.VectorDimension = n
		}
	}
	if v := os.Getenv("HDC_ENGINE_MAX_PROOF_STEPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.MaxProofSteps = n
		}
	}
	if v := os.Getenv("HDC_ENGINE_PROOF_TIMEOUT_MILLIS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.ProofTimeoutMillis = n
		}
	}

	if v := os.Getenv("HDC_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("HDC_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("HDC_STORAGE_GRAPH_MIRROR_ENABLED"); v != "" {
		c.Storage.GraphMirrorEnabled = parseBool(v)
	}
	if v := os.Getenv("HDC_STORAGE_NEO4J_URI"); v != "" {
		c.Storage.Neo4jURI = v
	}
	if v := os.Getenv("HDC_STORAGE_NEO4J_USERNAME"); v != "" {
		c.Storage.Neo4jUsername = v
	}
	if v := os.Getenv("HDC_STORAGE_NEO4J_PASSWORD"); v != "" {
		c.Storage.Neo4jPassword = v
	}

	if v := os.Getenv("HDC_FEATURES_ABDUCTION_ENABLED"); v != "" {
		c.Features.AbductionEnabled = parseBool(v)
	}
	if v := os.Getenv("HDC_FEATURES_HDC_CANDIDATES_ENABLED"); v != "" {
		c.Features.HDCCandidatesEnabled = parseBool(v)
	}

	if v := os.Getenv("HDC_LOGGING_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("HDC_LOGGING_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	if c.Server.Environment != "development" && c.Server.Environment != "staging" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be one of: development, staging, production")
	}

	switch c.Engine.HDCStrategy {
	case StrategyExact, StrategyDenseBinary, StrategySparsePolynomial:
	default:
		return fmt.Errorf("engine.hdc_strategy must be one of: exact, dense-binary, sparse-polynomial")
	}
	if c.Engine.VectorDimension <= 0 {
		return fmt.Errorf("engine.vector_dimension must be > 0")
	}
	if c.Engine.MaxProofSteps <= 0 {
		return fmt.Errorf("engine.max_proof_steps must be > 0")
	}
	if c.Engine.MaxProofDepth <= 0 {
		return fmt.Errorf("engine.max_proof_depth must be > 0")
	}
	if c.Engine.ProofTimeoutMillis <= 0 {
		return fmt.Errorf("engine.proof_timeout_millis must be > 0")
	}
	if c.Engine.MaxCausalDepth <= 0 {
		return fmt.Errorf("engine.max_causal_depth must be > 0")
	}

	if c.Storage.Type != "memory" && c.Storage.Type != "sqlite" {
		return fmt.Errorf("storage.type must be 'memory' or 'sqlite'")
	}
	if c.Storage.Type == "sqlite" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage.type is 'sqlite'")
	}

	if c.Performance.MaxConcurrentProofs < 1 {
		return fmt.Errorf("performance.max_concurrent_proofs must be >= 1")
	}
	if c.Performance.CacheSize < 0 {
		return fmt.Errorf("performance.cache_size cannot be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}

	return nil
}

// parseBool parses a boolean from string (handles various formats).
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on" || s == "enabled"
}

// ToJSON serializes the configuration to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// SaveToFile saves the configuration to a JSON file.
func (c *Config) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("config: failed to serialize config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: failed to write config file: %w", err)
	}
	return nil
}
