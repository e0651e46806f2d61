package domain

// Document is a single PDF filing discovered during an ingestion run.
// Documents themselves are never persisted, only their derived chunks.
type Document struct {
	Symbol string
	Path   string
	Text   string
}

// Chunk is a metadata-prefixed, bounded-length slice of a filing's text.
// Chunks are immutable once produced.
type Chunk struct {
	Symbol string
	Path   string
	Text   string
}

// Record is one persisted row of the vector index: a chunk plus its embedding.
// IDs are assigned by the store on insert.
type Record struct {
	ID     int64
	Symbol string
	Path   string
	Text   string
	Vector []float32
}

// SearchHit is a retrieved record projection with its distance to the query
// vector. Lower distance means closer under the configured metric.
type SearchHit struct {
	Symbol   string
	Path     string
	Text     string
	Distance float32
}
