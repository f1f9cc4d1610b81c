package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Name != "hdcreasoner" {
		t.Errorf("Expected server name 'hdcreasoner', got '%s'", cfg.Server.Name)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Expected environment 'development', got '%s'", cfg.Server.Environment)
	}

	if cfg.Storage.Type != "memory" {
		t.Errorf("Expected storage type 'memory', got '%s'", cfg.Storage.Type)
	}

	if !cfg.Engine.ClosedWorldAssumption {
		t.Error("Expected ClosedWorldAssumption to be enabled by default")
	}
	if cfg.Engine.HDCStrategy != StrategyDenseBinary {
		t.Errorf("Expected default HDC strategy 'dense-binary', got '%s'", cfg.Engine.HDCStrategy)
	}
	if cfg.Engine.Thresholds.TransitiveBase <= 0 || cfg.Engine.Thresholds.TransitiveBase > 1 {
		t.Errorf("Expected TransitiveBase in (0,1], got %v", cfg.Engine.Thresholds.TransitiveBase)
	}

	if !cfg.Features.AbductionEnabled {
		t.Error("Expected AbductionEnabled to be true")
	}

	if cfg.Performance.MaxConcurrentProofs != 32 {
		t.Errorf("Expected MaxConcurrentProofs 32, got %d", cfg.Performance.MaxConcurrentProofs)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level 'info', got '%s'", cfg.Logging.Level)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Name != "hdcreasoner" {
		t.Errorf("Expected default server name, got '%s'", cfg.Server.Name)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)

	_ = os.Setenv("HDC_SERVER_NAME", "test-server")
	_ = os.Setenv("HDC_SERVER_ENVIRONMENT", "production")
	_ = os.Setenv("HDC_ENGINE_CLOSED_WORLD_ASSUMPTION", "false")
	_ = os.Setenv("HDC_ENGINE_MAX_PROOF_STEPS", "50")
	_ = os.Setenv("HDC_LOGGING_LEVEL", "debug")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Name != "test-server" {
		t.Errorf("Expected server name 'test-server', got '%s'", cfg.Server.Name)
	}
	if cfg.Server.Environment != "production" {
		t.Errorf("Expected environment 'production', got '%s'", cfg.Server.Environment)
	}
	if cfg.Engine.ClosedWorldAssumption {
		t.Error("Expected ClosedWorldAssumption to be disabled")
	}
	if cfg.Engine.MaxProofSteps != 50 {
		t.Errorf("Expected MaxProofSteps 50, got %d", cfg.Engine.MaxProofSteps)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	configJSON := `{
		"server": {"name": "file-server", "version": "2.0.0", "environment": "staging"},
		"engine": {"closed_world_assumption": false, "hdc_strategy": "exact", "vector_dimension": 2048,
			"max_proof_steps": 500, "max_proof_depth": 25, "proof_timeout_millis": 2000, "max_causal_depth": 6},
		"storage": {"type": "memory"},
		"performance": {"max_concurrent_proofs": 4, "cache_size": 500},
		"logging": {"level": "warn", "format": "json", "enable_timestamps": false}
	}`

	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	clearEnv(t)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if cfg.Server.Name != "file-server" {
		t.Errorf("Expected server name 'file-server', got '%s'", cfg.Server.Name)
	}
	if cfg.Engine.HDCStrategy != StrategyExact {
		t.Errorf("Expected HDC strategy 'exact', got '%s'", cfg.Engine.HDCStrategy)
	}
	if cfg.Performance.MaxConcurrentProofs != 4 {
		t.Errorf("Expected MaxConcurrentProofs 4, got %d", cfg.Performance.MaxConcurrentProofs)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Expected log level 'warn', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configYAML := "server:\n  name: yaml-server\n  environment: staging\nengine:\n  hdc_strategy: sparse-polynomial\n  vector_dimension: 4096\n  max_proof_steps: 500\n  max_proof_depth: 25\n  proof_timeout_millis: 2000\n  max_causal_depth: 6\nstorage:\n  type: memory\nperformance:\n  max_concurrent_proofs: 4\nlogging:\n  level: info\n  format: text\n"

	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	clearEnv(t)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Server.Name != "yaml-server" {
		t.Errorf("Expected server name 'yaml-server', got '%s'", cfg.Server.Name)
	}
	if cfg.Engine.HDCStrategy != StrategySparsePolynomial {
		t.Errorf("Expected HDC strategy 'sparse-polynomial', got '%s'", cfg.Engine.HDCStrategy)
	}
	if cfg.Engine.VectorDimension != 4096 {
		t.Errorf("Expected VectorDimension 4096, got %d", cfg.Engine.VectorDimension)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Default()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{"valid default config", func(*Config) {}, false, ""},
		{"empty server name", func(c *Config) { c.Server.Name = "" }, true, "server.name cannot be empty"},
		{"invalid environment", func(c *Config) { c.Server.Environment = "invalid" }, true, "server.environment must be one of"},
		{"invalid storage type", func(c *Config) { c.Storage.Type = "postgresql" }, true, "storage.type must be"},
		{"sqlite without path", func(c *Config) { c.Storage.Type = "sqlite"; c.Storage.Path = "" }, true, "storage.path is required"},
		{"invalid hdc strategy", func(c *Config) { c.Engine.HDCStrategy = "quantum" }, true, "engine.hdc_strategy must be one of"},
		{"zero vector dimension", func(c *Config) { c.Engine.VectorDimension = 0 }, true, "engine.vector_dimension must be > 0"},
		{"zero max concurrent proofs", func(c *Config) { c.Performance.MaxConcurrentProofs = 0 }, true, "performance.max_concurrent_proofs must be >= 1"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, true, "logging.level must be one of"},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }, true, "logging.format must be 'text' or 'json'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, should contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true}, {"TRUE", true}, {"1", true}, {"yes", true}, {"on", true}, {"enabled", true},
		{"false", false}, {"0", false}, {"no", false}, {"off", false}, {"", false}, {"invalid", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseBool(tt.input); got != tt.expected {
				t.Errorf("parseBool(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToJSONAndSaveToFile(t *testing.T) {
	cfg := Default()
	data, err := cfg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("ToJSON() returned empty data")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "saved-config.json")
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() failed: %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() after save failed: %v", err)
	}
	if loaded.Server.Name != cfg.Server.Name {
		t.Errorf("Loaded config doesn't match saved config: %s != %s", loaded.Server.Name, cfg.Server.Name)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"HDC_SERVER_NAME", "HDC_SERVER_ENVIRONMENT",
		"HDC_ENGINE_CLOSED_WORLD_ASSUMPTION", "HDC_ENGINE_CANONICALIZATION_ENABLED",
		"HDC_ENGINE_HDC_STRATEGY", "HDC_ENGINE_VECTOR_DIMENSION", "HDC_ENGINE_MAX_PROOF_STEPS",
		"HDC_ENGINE_PROOF_TIMEOUT_MILLIS",
		"HDC_STORAGE_TYPE", "HDC_STORAGE_PATH", "HDC_STORAGE_GRAPH_MIRROR_ENABLED",
		"HDC_STORAGE_NEO4J_URI", "HDC_STORAGE_NEO4J_USERNAME", "HDC_STORAGE_NEO4J_PASSWORD",
		"HDC_FEATURES_ABDUCTION_ENABLED", "HDC_FEATURES_HDC_CANDIDATES_ENABLED",
		"HDC_LOGGING_LEVEL", "HDC_LOGGING_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func contains(s, substr string) bool {
	if len(s) == 0 || len(substr) == 0 {
		return false
	}
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
