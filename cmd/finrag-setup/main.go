package main

import (
	"context"
	"flag"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"finrag/internal/config"
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

	ctx := context.Background()
	store, err := milvus.Connect(ctx, milvus.Config{
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

	logger.Info("creating collection and index", "collection", cfg.VectorStore.Collection, "dim", cfg.VectorStore.Dim)
	if err := store.Setup(ctx); err != nil {
		logger.Fatal("collection setup failed", "err", err)
	}
	logger.Info("collection ready", "collection", cfg.VectorStore.Collection)
}
