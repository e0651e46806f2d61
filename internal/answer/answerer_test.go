package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/internal/domain"
	"finrag/internal/generate"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) Dimension() int { return len(s.vec) }
func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vec, s.err
}

type stubStore struct {
	hits     []domain.SearchHit
	failures int // number of calls that fail before one succeeds
	calls    int
	limit    int
}

func (s *stubStore) Setup(context.Context) error { return nil }

func (s *stubStore) Insert(context.Context, []domain.Record) error { return nil }

func (s *stubStore) Flush(context.Context) error { return nil }

func (s *stubStore) Close() error { return nil }

func (s *stubStore) Search(_ context.Context, _ []float32, limit int) ([]domain.SearchHit, error) {
	s.calls++
	s.limit = limit
	if s.calls <= s.failures {
		return nil, errors.New("index not ready")
	}
	return s.hits, nil
}

// scriptedGenerator replays deltas, then terminates with err.
type scriptedGenerator struct {
	deltas []string
	err    error
	gotReq generate.Request
}

func (g *scriptedGenerator) Stream(ctx context.Context, req generate.Request) (*generate.Stream, error) {
	g.gotReq = req
	stream := generate.NewStream()
	go func() {
		for _, d := range g.deltas {
			if !stream.Send(ctx, d) {
				stream.Close(ctx.Err())
				return
			}
		}
		stream.Close(g.err)
	}()
	return stream, nil
}

func collect(t *testing.T, updates <-chan Update) []Update {
	t.Helper()
	var all []Update
	for u := range updates {
		all = append(all, u)
	}
	return all
}

func TestBuildContextFormatsProvenance(t *testing.T) {
	hits := []domain.SearchHit{
		{Text: "chunk one", Path: "a.pdf"},
		{Text: "chunk two", Path: "b.pdf"},
	}
	got := BuildContext(hits, DefaultContextBudget)
	assert.Equal(t, "chunk one\n\nSOURCE: a.pdf\n\nchunk two\n\nSOURCE: b.pdf\n\n", got)
}

func TestBuildContextTruncatesToBudget(t *testing.T) {
	hits := []domain.SearchHit{
		{Text: strings.Repeat("a", 3000), Path: "a.pdf"},
		{Text: strings.Repeat("b", 3000), Path: "b.pdf"},
	}
	got := BuildContext(hits, 4096)
	assert.Len(t, got, 4096)
	// Lower-ranked content is what gets dropped.
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 3000)))
}

func TestBuildPromptTemplate(t *testing.T) {
	hits := []domain.SearchHit{{Text: "ctx", Path: "f.pdf"}}
	got := BuildPrompt("What grew?", hits, 4096)
	assert.Equal(t, "Context: ctx\n\nSOURCE: f.pdf\n\n\nQuestion: What grew?", got)
}

func TestAskStreamsCumulativePrefixes(t *testing.T) {
	gen := &scriptedGenerator{deltas: []string{"Rev", "enue ", "grew."}}
	store := &stubStore{hits: []domain.SearchHit{{Text: "ctx", Path: "a.pdf"}}}
	a, err := New(stubEmbedder{vec: []float32{1}}, store, gen, Options{}, nil)
	require.NoError(t, err)

	updates, err := a.Ask(context.Background(), "what grew?")
	require.NoError(t, err)
	all := collect(t, updates)
	require.NotEmpty(t, all)

	// Monotonicity: every update strictly extends the previous text.
	prev := ""
	for _, u := range all {
		assert.True(t, strings.HasPrefix(u.Text, prev), "update %q does not extend %q", u.Text, prev)
		assert.GreaterOrEqual(t, len(u.Text), len(prev))
		prev = u.Text
	}
	last := all[len(all)-1]
	assert.True(t, last.Done)
	assert.NoError(t, last.Err)
	assert.Equal(t, "Revenue grew.", last.Text)
}

func TestAskUsesTopKAndPromptBudget(t *testing.T) {
	gen := &scriptedGenerator{deltas: []string{"ok"}}
	store := &stubStore{hits: []domain.SearchHit{
		{Text: "first chunk", Path: "NASDAQ_AAPL_2022.pdf"},
		{Text: "second chunk", Path: "NASDAQ_MSFT_2022.pdf"},
	}}
	a, err := New(stubEmbedder{vec: []float32{1}}, store, gen, Options{System: "analyst"}, nil)
	require.NoError(t, err)

	updates, err := a.Ask(context.Background(), "which filing?")
	require.NoError(t, err)
	collect(t, updates)

	assert.Equal(t, DefaultTopK, store.limit)
	assert.Equal(t, "analyst", gen.gotReq.System)
	assert.Equal(t, generate.DefaultTemperature, gen.gotReq.Temperature)
	assert.Equal(t, generate.DefaultMaxTokens, gen.gotReq.MaxTokens)
	assert.Equal(t, generate.DefaultTopP, gen.gotReq.TopP)
	assert.Contains(t, gen.gotReq.Prompt, "first chunk")
	assert.Contains(t, gen.gotReq.Prompt, "SOURCE: NASDAQ_AAPL_2022.pdf")
	assert.True(t, strings.HasSuffix(gen.gotReq.Prompt, "Question: which filing?"))
}

func TestAskSurfacesGenerationFailure(t *testing.T) {
	gen := &scriptedGenerator{deltas: []string{"part"}, err: errors.New("stream broke")}
	store := &stubStore{}
	a, err := New(stubEmbedder{vec: []float32{1}}, store, gen, Options{}, nil)
	require.NoError(t, err)

	updates, err := a.Ask(context.Background(), "q")
	require.NoError(t, err)
	all := collect(t, updates)
	require.NotEmpty(t, all)
	last := all[len(all)-1]
	assert.False(t, last.Done)
	assert.EqualError(t, last.Err, "stream broke")
	assert.Equal(t, "part", last.Text)
}

func TestAskEmbeddingFailureIsFatalToTurn(t *testing.T) {
	a, err := New(stubEmbedder{err: errors.New("backend down")}, &stubStore{}, &scriptedGenerator{}, Options{}, nil)
	require.NoError(t, err)
	_, err = a.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed query")
}

func TestAskRetriesSearchOnce(t *testing.T) {
	gen := &scriptedGenerator{deltas: []string{"ok"}}
	store := &stubStore{failures: 1, hits: []domain.SearchHit{{Text: "ctx", Path: "a.pdf"}}}
	a, err := New(stubEmbedder{vec: []float32{1}}, store, gen, Options{}, nil)
	require.NoError(t, err)

	updates, err := a.Ask(context.Background(), "q")
	require.NoError(t, err)
	collect(t, updates)
	assert.Equal(t, 2, store.calls)
}

func TestAskSearchFailureAfterRetryIsFatal(t *testing.T) {
	store := &stubStore{failures: 2}
	a, err := New(stubEmbedder{vec: []float32{1}}, store, &scriptedGenerator{}, Options{}, nil)
	require.NoError(t, err)
	_, err = a.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search index")
	assert.Equal(t, 2, store.calls)
}
