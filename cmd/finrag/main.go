package main

import (
	"context"
	"flag"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"finrag/internal/answer"
	"finrag/internal/config"
	embopenai "finrag/internal/embedding/openai"
	genopenai "finrag/internal/generate/openai"
	"finrag/internal/tui"
	"finrag/internal/vectorstore/milvus"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/finrag/config.yaml)")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		logger.Fatal("failed to load config", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	embedder, err := embopenai.NewClient(embopenai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("embedder init failed", "err", err)
	}

	generator, err := genopenai.NewClient(genopenai.Config{
		BaseURL:   cfg.Generator.BaseURL,
		APIKeyEnv: cfg.Generator.APIKeyEnv,
		Model:     cfg.Generator.Model,
		Timeout:   time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("generator init failed", "err", err)
	}

	// One long-lived store connection for the whole session.
	store, err := milvus.Connect(context.Background(), milvus.Config{
		Address:    cfg.MilvusAddress(),
		Collection: cfg.VectorStore.Collection,
		Dim:        cfg.VectorStore.Dim,
		Metric:     cfg.VectorStore.Metric,
		Nlist:      cfg.VectorStore.Nlist,
	})
	if err != nil {
		logger.Fatal("failed to connect to vector store", "err", err)
	}
	defer store.Close()

	svc, err := answer.New(embedder, store, generator, answer.Options{
		TopK:          cfg.Answer.TopK,
		ContextBudget: cfg.Answer.ContextBudget,
		System:        cfg.Generator.SystemPrompt,
		Temperature:   cfg.Generator.Temperature,
		MaxTokens:     cfg.Generator.MaxTokens,
		TopP:          cfg.Generator.TopP,
	}, logger)
	if err != nil {
		logger.Fatal("answerer init failed", "err", err)
	}

	m := tui.New(svc)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		logger.Fatal("tui failed", "err", err)
	}
}
