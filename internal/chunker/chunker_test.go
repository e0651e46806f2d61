package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"defaults", 0, 0, false},
		{"explicit", 1600, 50, false},
		{"negative size", -1, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
		{"overlap exceeds size", 100, 200, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	c, err := New(0, 0)
	require.NoError(t, err)
	assert.Nil(t, c.Split("AAPL", ""))
}

func TestSplitShortText(t *testing.T) {
	c, err := New(0, 0)
	require.NoError(t, err)
	chunks := c.Split("AAPL", "0123456789")
	require.Len(t, chunks, 1)
	assert.Equal(t, MetadataPrefix("AAPL")+"0123456789", chunks[0])
}

func TestSplitMetadataPrefix(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	chunks := c.Split("MSFT", strings.Repeat("x", 450))
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch, "Document contains context of MSFT"))
		assert.Contains(t, ch, "10-K SEC fillings\n")
	}
}

func TestSplitOverlapProperty(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	text := randomishText(1025)
	chunks := c.Split("AMZN", text)
	require.Greater(t, len(chunks), 2)

	meta := MetadataPrefix("AMZN")
	bodies := make([]string, len(chunks))
	for i, ch := range chunks {
		require.True(t, strings.HasPrefix(ch, meta))
		bodies[i] = strings.TrimPrefix(ch, meta)
	}
	// Each chunk past the first starts with the last overlap chars of its
	// predecessor's stride.
	for i := 1; i < len(bodies); i++ {
		prev := bodies[i-1]
		overlap := bodies[i][:c.Overlap()]
		assert.Equal(t, prev[len(prev)-c.Overlap():], overlap, "chunk %d overlap", i)
		assert.Equal(t, text[i*c.Size()-c.Overlap():i*c.Size()], overlap, "chunk %d overlap against source", i)
	}
}

func TestSplitCoverageProperty(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	for _, n := range []int{1, 99, 100, 101, 250, 1000, 1024} {
		text := randomishText(n)
		chunks := c.Split("GOOG", text)
		meta := MetadataPrefix("GOOG")
		var b strings.Builder
		for i, ch := range chunks {
			body := strings.TrimPrefix(ch, meta)
			if i > 0 {
				body = body[c.Overlap():]
			}
			b.WriteString(body)
		}
		assert.Equal(t, text, b.String(), "length %d", n)
	}
}

func TestSplitDeterminism(t *testing.T) {
	c, err := New(0, 0)
	require.NoError(t, err)
	text := randomishText(5000)
	assert.Equal(t, c.Split("TSLA", text), c.Split("TSLA", text))
}

func TestSplitFirstChunkHasNoBackwardExtension(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	text := randomishText(150)
	chunks := c.Split("NVDA", text)
	require.Len(t, chunks, 2)
	meta := MetadataPrefix("NVDA")
	assert.Equal(t, text[:100], strings.TrimPrefix(chunks[0], meta))
	assert.Equal(t, text[90:150], strings.TrimPrefix(chunks[1], meta))
}

func TestSplitMultiByteText(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	text := strings.Repeat("財", 120)
	chunks := c.Split("SONY", text)
	require.Len(t, chunks, 2)

	meta := MetadataPrefix("SONY")
	first := strings.TrimPrefix(chunks[0], meta)
	second := strings.TrimPrefix(chunks[1], meta)
	require.True(t, utf8.ValidString(first))
	require.True(t, utf8.ValidString(second))
	assert.Equal(t, strings.Repeat("財", 100), first)
	assert.Equal(t, strings.Repeat("財", 30), second)
}

func TestSplitMixedWidthOverlap(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)
	// em dashes and ligatures interleaved with ASCII
	pattern := []rune("a—ﬁ財e")
	var b strings.Builder
	for i := 0; i < 250; i++ {
		b.WriteRune(pattern[i%len(pattern)])
	}
	text := b.String()
	runes := []rune(text)
	chunks := c.Split("BRKA", text)
	require.Len(t, chunks, 3)

	meta := MetadataPrefix("BRKA")
	for i, ch := range chunks {
		body := strings.TrimPrefix(ch, meta)
		require.True(t, utf8.ValidString(body), "chunk %d", i)
		if i == 0 {
			continue
		}
		head := string([]rune(body)[:c.Overlap()])
		assert.Equal(t, string(runes[i*c.Size()-c.Overlap():i*c.Size()]), head, "chunk %d overlap", i)
	}
}

func randomishText(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz 0123456789."
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[(i*7+i/3)%len(alphabet)]
	}
	return string(b)
}
