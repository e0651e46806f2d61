package generate

import "context"

// Default decoding parameters for the answer model.
const (
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 3000
	DefaultTopP        = 1.0
)

// Request carries the prompt and decoding parameters for one generation.
// System and the decoding knobs are externally supplied configuration.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// Generator produces a streamed completion for a request. Implementations
// must stop generating when ctx is canceled. Generation is side-effecting
// and must never be retried blindly.
type Generator interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
}

// Stream delivers completion text increments as they arrive. It is
// single-producer, single-consumer: the producer calls Send and Close, the
// consumer ranges over Deltas and checks Err once the channel is closed.
type Stream struct {
	deltas chan string
	err    error
}

// NewStream creates a stream with a small delivery buffer.
func NewStream() *Stream {
	return &Stream{deltas: make(chan string, 16)}
}

// Deltas returns the channel of text increments. It is closed when the
// generation ends, normally or not.
func (s *Stream) Deltas() <-chan string { return s.deltas }

// Err reports how the stream terminated. Valid only after Deltas is closed;
// nil means the upstream completed normally.
func (s *Stream) Err() error { return s.err }

// Send delivers one increment, blocking until the consumer is ready or ctx
// is done. It reports whether the increment was delivered.
func (s *Stream) Send(ctx context.Context, text string) bool {
	select {
	case s.deltas <- text:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close records the terminal error (nil for normal completion) and closes
// the delta channel. Must be called exactly once, by the producer.
func (s *Stream) Close(err error) {
	s.err = err
	close(s.deltas)
}
