package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"finrag/internal/chunker"
	"finrag/internal/domain"
	"finrag/internal/embedding"
	"finrag/internal/vectorstore"
)

// DefaultWorkers bounds the per-document fan-out.
const DefaultWorkers = 4

// TextExtractor turns a document file into plain text.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Pipeline orchestrates extract -> chunk -> embed -> insert for a directory
// of PDF filings. Documents are processed independently and in parallel; the
// only synchronization point is the final batch insert plus flush.
type Pipeline struct {
	extractor TextExtractor
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	store     vectorstore.Store
	workers   int
	log       *log.Logger
}

// Result reports what one ingestion run produced.
type Result struct {
	Documents int // documents successfully processed
	Chunks    int // records inserted and flushed
	Failed    int // documents skipped due to extraction failures
}

// NewPipeline assembles an ingestion pipeline. workers <= 0 selects
// DefaultWorkers.
func NewPipeline(extractor TextExtractor, ch *chunker.Chunker, emb embedding.Embedder, store vectorstore.Store, workers int, logger *log.Logger) (*Pipeline, error) {
	if extractor == nil {
		return nil, fmt.Errorf("text extractor is required")
	}
	if ch == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if emb == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{extractor: extractor, chunker: ch, embedder: emb, store: store, workers: workers, log: logger}, nil
}

// Run ingests every PDF directly under dir. A document whose text cannot be
// extracted is logged, counted in Result.Failed and skipped; the rest of the
// batch proceeds. An embedding or store failure aborts the run so no partial
// batch is ever marked flushed.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Result, error) {
	paths, err := listPDFs(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF documents found in %s", dir)
	}

	perDoc := make([][]domain.Record, len(paths))
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			text, err := p.extractor.Extract(path)
			if err != nil {
				// Extraction failures are isolated to the document.
				p.log.Warn("skipping unreadable document", "path", path, "err", err)
				failed.Add(1)
				return nil
			}
			doc := domain.Document{
				Symbol: Symbol(filepath.Base(path)),
				Path:   path,
				Text:   text,
			}
			recs, err := p.buildRecords(gctx, doc)
			if err != nil {
				return err
			}
			perDoc[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []domain.Record
	for _, recs := range perDoc {
		records = append(records, recs...)
	}
	if err := p.store.Insert(ctx, records); err != nil {
		return nil, fmt.Errorf("insert records: %w", err)
	}
	if err := p.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush collection: %w", err)
	}
	res := &Result{
		Documents: len(paths) - int(failed.Load()),
		Chunks:    len(records),
		Failed:    int(failed.Load()),
	}
	p.log.Info("ingestion completed", "documents", res.Documents, "chunks", res.Chunks, "failed", res.Failed)
	return res, nil
}

// buildRecords chunks and embeds one document. An embedding error is fatal to
// the whole batch: no partial or corrupt vector may reach the store.
func (p *Pipeline) buildRecords(ctx context.Context, doc domain.Document) ([]domain.Record, error) {
	chunks := p.chunker.Split(doc.Symbol, doc.Text)
	records := make([]domain.Record, 0, len(chunks))
	for _, text := range chunks {
		ch := domain.Chunk{Symbol: doc.Symbol, Path: doc.Path, Text: text}
		vec, err := p.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk of %s: %w", doc.Path, err)
		}
		records = append(records, domain.Record{
			Symbol: ch.Symbol,
			Path:   ch.Path,
			Text:   ch.Text,
			Vector: vec,
		})
	}
	return records, nil
}

// listPDFs returns the PDF files directly under dir, skipping subdirectories
// and OS-generated hidden files such as .DS_Store.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list documents in %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}
