package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"finrag/internal/domain"
	"finrag/internal/embedding"
	"finrag/internal/generate"
	"finrag/internal/vectorstore"
)

// Retrieval and prompt-assembly defaults.
const (
	DefaultTopK          = 3
	DefaultContextBudget = 4096
)

// Update is one step of a streamed answer. Text is the cumulative answer so
// far; each update strictly extends the previous one. Exactly one terminal
// update is sent, with Done set or Err non-nil.
type Update struct {
	Text string
	Err  error
	Done bool
}

// Options tune retrieval and generation for the answerer.
type Options struct {
	TopK          int
	ContextBudget int
	System        string
	Temperature   float64
	MaxTokens     int
	TopP          float64
}

// Answerer grounds generated answers in retrieved filing chunks. It holds no
// state between questions: there is no conversation memory.
type Answerer struct {
	embedder  embedding.Embedder
	store     vectorstore.Store
	generator generate.Generator
	opts      Options
	log       *log.Logger
}

// New assembles an answerer. Zero option values select the defaults.
func New(emb embedding.Embedder, store vectorstore.Store, gen generate.Generator, opts Options, logger *log.Logger) (*Answerer, error) {
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = DefaultContextBudget
	}
	if opts.Temperature == 0 {
		opts.Temperature = generate.DefaultTemperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = generate.DefaultMaxTokens
	}
	if opts.TopP == 0 {
		opts.TopP = generate.DefaultTopP
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Answerer{embedder: emb, store: store, generator: gen, opts: opts, log: logger}, nil
}

// Ask answers one question: embed the query, retrieve the nearest chunks,
// assemble a bounded prompt and stream the generated answer as cumulative
// prefixes. Canceling ctx stops the upstream generation. Embedding and search
// are idempotent and may retry; generation never does.
func (a *Answerer) Ask(ctx context.Context, question string) (<-chan Update, error) {
	vec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := a.search(ctx, vec)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	a.log.Debug("retrieved context", "hits", len(hits))

	stream, err := a.generator.Stream(ctx, generate.Request{
		System:      a.opts.System,
		Prompt:      BuildPrompt(question, hits, a.opts.ContextBudget),
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
		TopP:        a.opts.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("start generation: %w", err)
	}

	updates := make(chan Update, 1)
	go func() {
		defer close(updates)
		var b strings.Builder
		for delta := range stream.Deltas() {
			b.WriteString(delta)
			select {
			case updates <- Update{Text: b.String()}:
			case <-ctx.Done():
				return
			}
		}
		final := Update{Text: b.String(), Done: true}
		if err := stream.Err(); err != nil {
			final = Update{Text: b.String(), Err: err}
		}
		select {
		case updates <- final:
		case <-ctx.Done():
		}
	}()
	return updates, nil
}

// search retries once on a transient store failure; the operation is
// idempotent and has no side effects.
func (a *Answerer) search(ctx context.Context, vec []float32) ([]domain.SearchHit, error) {
	hits, err := a.store.Search(ctx, vec, a.opts.TopK)
	if err == nil || ctx.Err() != nil {
		return hits, err
	}
	a.log.Warn("retrying search after transient failure", "err", err)
	return a.store.Search(ctx, vec, a.opts.TopK)
}

// BuildContext concatenates retrieved chunk texts in rank order, each with a
// provenance line, truncated to budget characters measured from the start.
func BuildContext(hits []domain.SearchHit, budget int) string {
	var b strings.Builder
	for _, h := range hits {
		b.WriteString(h.Text)
		b.WriteString("\n\nSOURCE: ")
		b.WriteString(h.Path)
		b.WriteString("\n\n")
	}
	s := b.String()
	if budget > 0 && len(s) > budget {
		s = s[:budget]
	}
	return s
}

// BuildPrompt assembles the final prompt from the question and its retrieved
// context.
func BuildPrompt(question string, hits []domain.SearchHit, budget int) string {
	return "Context: " + BuildContext(hits, budget) + "\n" + "Question: " + question
}
