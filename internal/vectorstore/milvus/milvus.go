package milvus

import (
	"context"
	"errors"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"finrag/internal/domain"
	"finrag/internal/vectorstore"
)

// Field names of the filing collection.
const (
	fieldID     = "id"
	fieldSymbol = "stock_symbol"
	fieldPath   = "file_path"
	fieldText   = "chunked_text"
	fieldVector = "embedded_vectors"
)

// searchNprobe is the number of inverted-list partitions probed per query.
const searchNprobe = 16

// Config contains connection and schema details for the Milvus store.
type Config struct {
	Address    string // host:port
	Collection string
	Dim        int
	Metric     string // L2 (default) or IP
	Nlist      int
}

// Store is a Milvus-backed vector store. The client is long-lived: connect
// once at process start, Close at shutdown.
type Store struct {
	c          client.Client
	collection string
	dim        int
	metric     entity.MetricType
	nlist      int
}

// Connect dials Milvus and returns a Store bound to the configured collection.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("milvus address is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("milvus collection name is required")
	}
	if cfg.Dim <= 0 {
		cfg.Dim = vectorstore.DefaultDim
	}
	if cfg.Nlist <= 0 {
		cfg.Nlist = vectorstore.DefaultNlist
	}
	metric := entity.L2
	if cfg.Metric == "IP" {
		metric = entity.IP
	}
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", cfg.Address, err)
	}
	return &Store{
		c:          c,
		collection: cfg.Collection,
		dim:        cfg.Dim,
		metric:     metric,
		nlist:      cfg.Nlist,
	}, nil
}

// Setup drops any existing collection, recreates it with the filing record
// schema, builds an IVF_FLAT index over the embedding field and loads the
// collection. The collection is queryable only after Setup returns.
func (s *Store) Setup(ctx context.Context) error {
	has, err := s.c.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if has {
		if err := s.c.DropCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("drop collection %s: %w", s.collection, err)
		}
	}
	schema := entity.NewSchema().WithName(s.collection).
		WithField(entity.NewField().WithName(fieldID).
			WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(true)).
		WithField(entity.NewField().WithName(fieldSymbol).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(vectorstore.MaxSymbolLen)).
		WithField(entity.NewField().WithName(fieldPath).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(vectorstore.MaxPathLen)).
		WithField(entity.NewField().WithName(fieldText).
			WithDataType(entity.FieldTypeVarChar).WithMaxLength(vectorstore.MaxTextLen)).
		WithField(entity.NewField().WithName(fieldVector).
			WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
	if err := s.c.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	idx, err := entity.NewIndexIvfFlat(s.metric, s.nlist)
	if err != nil {
		return fmt.Errorf("build index params: %w", err)
	}
	if err := s.c.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
		return fmt.Errorf("create index on %s: %w", s.collection, err)
	}
	if err := s.c.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", s.collection, err)
	}
	return nil
}

// Insert appends records as one batch. IDs are auto-assigned by Milvus.
func (s *Store) Insert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	symbols := make([]string, len(records))
	paths := make([]string, len(records))
	texts := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dim {
			return fmt.Errorf("record %d: vector dimension %d does not match collection dimension %d",
				i, len(r.Vector), s.dim)
		}
		symbols[i] = r.Symbol
		paths[i] = r.Path
		texts[i] = r.Text
		vectors[i] = r.Vector
	}
	_, err := s.c.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar(fieldSymbol, symbols),
		entity.NewColumnVarChar(fieldPath, paths),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldVector, s.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert %d records into %s: %w", len(records), s.collection, err)
	}
	return nil
}

// Flush makes previously inserted records durable and searchable.
func (s *Store) Flush(ctx context.Context) error {
	if err := s.c.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("flush collection %s: %w", s.collection, err)
	}
	return nil
}

// Search returns the nearest records to vector, ascending by distance,
// projecting symbol, path and chunk text.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]domain.SearchHit, error) {
	if limit <= 0 {
		limit = vectorstore.DefaultLimit
	}
	sp, err := entity.NewIndexIvfFlatSearchParam(searchNprobe)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	results, err := s.c.Search(ctx, s.collection, nil, "",
		[]string{fieldSymbol, fieldPath, fieldText},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, s.metric, limit, sp)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", s.collection, err)
	}
	var hits []domain.SearchHit
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			hit := domain.SearchHit{Distance: rs.Scores[i]}
			if col := rs.Fields.GetColumn(fieldSymbol); col != nil {
				hit.Symbol, _ = col.GetAsString(i)
			}
			if col := rs.Fields.GetColumn(fieldPath); col != nil {
				hit.Path, _ = col.GetAsString(i)
			}
			if col := rs.Fields.GetColumn(fieldText); col != nil {
				hit.Text, _ = col.GetAsString(i)
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Close releases the Milvus connection.
func (s *Store) Close() error {
	return s.c.Close()
}
