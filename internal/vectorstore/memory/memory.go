package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"finrag/internal/domain"
	"finrag/internal/vectorstore"
)

// Store is an in-memory vector store using brute-force L2 distance. It models
// the flush barrier of the real store: inserted records become searchable
// only after Flush. Intended for tests and local runs without Milvus.
type Store struct {
	mu      sync.RWMutex
	dim     int
	nextID  int64
	pending []domain.Record
	flushed []domain.Record
}

// NewStore creates an in-memory store for vectors of the given dimension.
func NewStore(dim int) *Store {
	if dim <= 0 {
		dim = vectorstore.DefaultDim
	}
	return &Store{dim: dim, nextID: 1}
}

// Setup drops all records, pending and flushed.
func (s *Store) Setup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.flushed = nil
	s.nextID = 1
	return nil
}

// Insert appends records to the pending set and assigns IDs.
func (s *Store) Insert(ctx context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range records {
		if len(r.Vector) != s.dim {
			return fmt.Errorf("record %d: vector dimension %d does not match store dimension %d",
				i, len(r.Vector), s.dim)
		}
		r.ID = s.nextID
		s.nextID++
		s.pending = append(s.pending, r)
	}
	return nil
}

// Flush promotes pending records to the searchable set.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed = append(s.flushed, s.pending...)
	s.pending = nil
	return nil
}

// Search returns the flushed records closest to vector under squared L2
// distance, ascending.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dim {
		return nil, errors.New("query vector dimension mismatch")
	}
	if limit <= 0 {
		limit = vectorstore.DefaultLimit
	}
	hits := make([]domain.SearchHit, 0, len(s.flushed))
	for _, r := range s.flushed {
		hits = append(hits, domain.SearchHit{
			Symbol:   r.Symbol,
			Path:     r.Path,
			Text:     r.Text,
			Distance: l2(r.Vector, vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if limit < len(hits) {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

func l2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
