package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the document portal.
type Config struct {
	Chunk      ChunkConfig      `yaml:"chunk"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Query      QueryConfig      `yaml:"query"`
	Compare    CompareConfig    `yaml:"compare"`
	Session    SessionConfig    `yaml:"session"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ChunkConfig holds passage splitting configuration.
type ChunkConfig struct {
	MaxChunkChars int `yaml:"max_chunk_chars"`
	OverlapChars  int `yaml:"overlap_chars"`
}

// EmbeddingConfig holds embedding gateway configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "mock"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"` // Environment variable for API key
	Dimension         int     `yaml:"dimension"`
	BatchSize         int     `yaml:"batch_size"`
	Workers           int     `yaml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
}

// GenerationConfig holds answer generation configuration.
type GenerationConfig struct {
	Provider       string  `yaml:"provider"` // "openai", "mock"
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// QueryConfig holds retrieval and conversation configuration.
type QueryConfig struct {
	TopK              int `yaml:"top_k"`
	MaxHistoryTurns   int `yaml:"max_history_turns"`
	ContextCharBudget int `yaml:"context_char_budget"`
}

// CompareConfig holds document comparison configuration.
type CompareConfig struct {
	ModifiedThreshold float64 `yaml:"modified_threshold"`
}

// SessionConfig holds workspace configuration.
type SessionConfig struct {
	WorkspaceDir string `yaml:"workspace_dir"`
	KeepLatest   int    `yaml:"keep_latest"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			MaxChunkChars: 1000,
			OverlapChars:  200,
		},
		Embedding: EmbeddingConfig{
			Provider:          "openai",
			Model:             "text-embedding-3-small",
			BaseURL:           "https://api.openai.com/v1",
			APIKeyEnv:         "OPENAI_API_KEY",
			Dimension:         1536,
			BatchSize:         100,
			Workers:           4,
			RequestsPerSecond: 5,
			TimeoutSeconds:    60,
		},
		Generation: GenerationConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com/v1",
			APIKeyEnv:      "OPENAI_API_KEY",
			Temperature:    0.1,
			MaxTokens:      1024,
			TimeoutSeconds: 120,
		},
		Query: QueryConfig{
			TopK:              5,
			MaxHistoryTurns:   6,
			ContextCharBudget: 8000,
		},
		Compare: CompareConfig{
			ModifiedThreshold: 0.5,
		},
		Session: SessionConfig{
			WorkspaceDir: "data",
			KeepLatest:   3,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MaxUploadMB: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Chunk.MaxChunkChars <= 0 {
		return fmt.Errorf("chunk.max_chunk_chars must be positive, got %d", c.Chunk.MaxChunkChars)
	}
	if c.Chunk.OverlapChars < 0 || c.Chunk.OverlapChars >= c.Chunk.MaxChunkChars {
		return fmt.Errorf("chunk.overlap_chars must be in [0, max_chunk_chars), got %d", c.Chunk.OverlapChars)
	}
	if c.Query.TopK <= 0 {
		return fmt.Errorf("query.top_k must be positive, got %d", c.Query.TopK)
	}
	if c.Query.MaxHistoryTurns < 0 {
		return fmt.Errorf("query.max_history_turns must not be negative, got %d", c.Query.MaxHistoryTurns)
	}
	if c.Compare.ModifiedThreshold < 0 || c.Compare.ModifiedThreshold > 1 {
		return fmt.Errorf("compare.modified_threshold must be in [0, 1], got %g", c.Compare.ModifiedThreshold)
	}
	if c.Session.KeepLatest < 1 {
		return fmt.Errorf("session.keep_latest must be at least 1, got %d", c.Session.KeepLatest)
	}
	return nil
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docport.yaml).
func LoadFromDir(dir string) (*Config, error) {
	// Try docport.yaml in the directory
	path := filepath.Join(dir, "docport.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Try .docport/config.yaml
	path = filepath.Join(dir, ".docport", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CatalogPath returns the path to the session catalog database.
func CatalogPath(workspace string) string {
	return filepath.Join(workspace, "catalog.db")
}

// SessionsDir returns the directory holding per-session data.
func SessionsDir(workspace string) string {
	return filepath.Join(workspace, "sessions")
}

// EnsureWorkspace ensures the workspace directory tree exists.
func EnsureWorkspace(workspace string) error {
	return os.MkdirAll(SessionsDir(workspace), 0755)
}
