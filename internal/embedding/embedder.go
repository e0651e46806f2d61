package embedding

import "context"

// Embedder converts free text into a fixed-dimension vector. Corpus and query
// vectors must come from the same model instance, or similarity search is
// meaningless.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
