package vectorstore

import (
	"context"

	"finrag/internal/domain"
)

// Field bounds and index defaults of the filing index schema.
const (
	MaxSymbolLen = 10
	MaxPathLen   = 200
	MaxTextLen   = 2200

	DefaultDim   = 384
	DefaultNlist = 768
	DefaultLimit = 3
)

// Store persists filing chunk records and answers nearest-neighbor queries.
// Records are append-only: the only way to remove stale data is Setup, which
// drops and recreates the whole collection.
type Store interface {
	// Setup drops any existing collection of the configured name, recreates
	// it with the record schema, builds the vector index and loads the
	// collection into a queryable state.
	Setup(ctx context.Context) error
	// Insert appends records. Primary keys are assigned by the store.
	Insert(ctx context.Context, records []domain.Record) error
	// Flush is the durability barrier: inserted records are searchable only
	// after Flush returns.
	Flush(ctx context.Context) error
	// Search returns at most limit records ordered by ascending distance to
	// the query vector.
	Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error)
	// Close releases the underlying connection.
	Close() error
}
