package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"finrag/internal/chunker"
	"finrag/internal/config"
	"finrag/internal/embedding/openai"
	"finrag/internal/extract"
	"finrag/internal/ingest"
	"finrag/internal/vectorstore/milvus"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var reset bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/finrag/config.yaml)")
	flag.BoolVar(&reset, "reset", false, "Drop and recreate the collection before ingesting")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: finrag-ingest [--config=config.yaml] [--reset] <pdf-directory>")
		os.Exit(1)
	}
	dir := flag.Arg(0)

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

	embedder, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})
	if err != nil {
		logger.Fatal("embedder init failed", "err", err)
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

	if reset {
		logger.Info("resetting collection", "collection", cfg.VectorStore.Collection)
		if err := store.Setup(ctx); err != nil {
			logger.Fatal("collection setup failed", "err", err)
		}
	}

	ch, err := chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		logger.Fatal("chunker init failed", "err", err)
	}
	pipeline, err := ingest.NewPipeline(extract.NewPDF(), ch, embedder, store, cfg.Ingest.Workers, logger)
	if err != nil {
		logger.Fatal("pipeline init failed", "err", err)
	}

	logger.Info("PDF ingestion started", "dir", dir)
	res, err := pipeline.Run(ctx, dir)
	if err != nil {
		logger.Fatal("ingestion failed", "err", err)
	}
	logger.Info("PDF ingestion completed", "documents", res.Documents, "chunks", res.Chunks, "failed", res.Failed)
}
