package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment keys recognized as overrides. They select which backing
// service or model instance the pipeline binds to.
const (
	EnvMilvusHost     = "MILVUS_HOST"
	EnvMilvusPort     = "MILVUS_PORT"
	EnvCollectionName = "MILVUS_COLLECTION_NAME"
	EnvEmbeddingModel = "EMBEDDING_MODEL"
	EnvLLMModel       = "LLM_MODEL"
	EnvSystemPrompt   = "LLM_SYSTEM_PROMPT"
)

// EmbedderConfig configures the OpenAI-compatible embeddings backend.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkerConfig configures how filing text is split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// VectorStoreConfig contains connection and schema details for Milvus.
type VectorStoreConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	Dim        int    `yaml:"dim"`
	Metric     string `yaml:"metric"`
	Nlist      int    `yaml:"nlist"`
}

// GeneratorConfig configures the generative model and decoding parameters.
type GeneratorConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKeyEnv    string  `yaml:"api_key_env"`
	Model        string  `yaml:"model"`
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	TopP         float64 `yaml:"top_p"`
	TimeoutSecs  int     `yaml:"timeout_secs"`
}

// AnswerConfig tunes retrieval and prompt assembly.
type AnswerConfig struct {
	TopK          int `yaml:"top_k"`
	ContextBudget int `yaml:"context_budget"`
}

// IngestConfig tunes the ingestion run.
type IngestConfig struct {
	Workers int `yaml:"workers"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Answer      AnswerConfig      `yaml:"answer"`
	Ingest      IngestConfig      `yaml:"ingest"`
}

// Load reads a config from path and applies environment overrides. The file
// is unmarshaled over a fully defaulted config, so an absent key keeps its
// default while an explicit zero (e.g. chunker overlap 0) is honored. A
// missing file yields defaults plus overrides.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/finrag/config.yaml.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first fatal misconfiguration. Required bindings must
// be present at startup; their absence is never a per-request error.
func (c *AppConfig) Validate() error {
	if c.VectorStore.Host == "" {
		return fmt.Errorf("vector store host is required (set %s)", EnvMilvusHost)
	}
	if c.VectorStore.Port <= 0 {
		return fmt.Errorf("vector store port is required (set %s)", EnvMilvusPort)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("collection name is required (set %s)", EnvCollectionName)
	}
	if c.Embedder.Model == "" {
		return fmt.Errorf("embedding model is required (set %s)", EnvEmbeddingModel)
	}
	if c.Generator.Model == "" {
		return fmt.Errorf("generative model is required (set %s)", EnvLLMModel)
	}
	return nil
}

// MilvusAddress renders the host:port pair the store client dials.
func (c *AppConfig) MilvusAddress() string {
	return fmt.Sprintf("%s:%d", c.VectorStore.Host, c.VectorStore.Port)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "finrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Chunker: ChunkerConfig{
			Size:    1600,
			Overlap: 50,
		},
		Embedder: EmbedderConfig{
			TimeoutSecs: 30,
		},
		VectorStore: VectorStoreConfig{
			Dim:    384,
			Metric: "L2",
			Nlist:  768,
		},
		Generator: GeneratorConfig{
			Temperature: 0.5,
			MaxTokens:   3000,
			TopP:        1,
			TimeoutSecs: 300,
		},
		Answer: AnswerConfig{
			TopK:          3,
			ContextBudget: 4096,
		},
		Ingest: IngestConfig{
			Workers: 4,
		},
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv(EnvMilvusHost); v != "" {
		cfg.VectorStore.Host = v
	}
	if v := os.Getenv(EnvMilvusPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.VectorStore.Port = port
		}
	}
	if v := os.Getenv(EnvCollectionName); v != "" {
		cfg.VectorStore.Collection = v
	}
	if v := os.Getenv(EnvEmbeddingModel); v != "" {
		cfg.Embedder.Model = v
	}
	if v := os.Getenv(EnvLLMModel); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv(EnvSystemPrompt); v != "" {
		cfg.Generator.SystemPrompt = v
	}
}
