package chunker

import (
	"errors"
	"fmt"
)

// Default segmentation parameters for financial filings.
const (
	DefaultChunkSize = 1600
	DefaultOverlap   = 50
)

// Chunker splits filing text into fixed-stride chunks. Every stride past the
// first is extended backward by the overlap so context survives chunk
// boundaries.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. A zero size selects DefaultChunkSize; overlap zero
// is a valid setting and means no backward extension.
func New(size, overlap int) (*Chunker, error) {
	if size == 0 {
		size = DefaultChunkSize
	}
	if size < 0 {
		return nil, errors.New("chunk size must be greater than zero")
	}
	if overlap < 0 {
		return nil, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// metadata is the sentence prepended to every chunk so retrieval hits carry
// their ticker and document class even out of context.
func metadata(symbol string) string {
	return "Document contains context of " + symbol +
		" and is relevant to the annual reports / financial statements/ 10-K SEC fillings\n"
}

// Split segments text into metadata-prefixed chunks. It is a pure function:
// the same (symbol, text) pair always yields the same sequence. Empty text
// yields nil; text shorter than the chunk size yields a single chunk.
//
// Size and overlap are measured in characters, not bytes, so multi-byte text
// never gets cut mid-rune.
func (c *Chunker) Split(symbol, text string) []string {
	if text == "" {
		return nil
	}
	meta := metadata(symbol)
	runes := []rune(text)
	var chunks []string
	for i := 0; i < len(runes); i += c.size {
		start := i
		if i > c.overlap {
			start = i - c.overlap
		}
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, meta+string(runes[start:end]))
	}
	return chunks
}

// Size reports the configured stride length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap reports the configured backward overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// MetadataPrefix exposes the chunk metadata sentence for a symbol. Useful for
// consumers that need to strip it back off.
func MetadataPrefix(symbol string) string { return metadata(symbol) }
