package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"finrag/internal/generate"
)

// Client streams chat completions from an OpenAI-compatible endpoint. A
// self-hosted llama2 server exposing the same wire format works unchanged.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Config configures the streaming completion client. Model selects the
// generative model identifier; it is external configuration.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a streaming completion client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, errors.New("generative model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	t := cfg.Timeout
	if t == 0 {
		// Generous: covers the whole token stream, not a single roundtrip.
		t = 5 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  os.Getenv(cfg.APIKeyEnv),
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Stream submits the prompt and returns a stream of text increments.
// Canceling ctx aborts the upstream request; the stream then terminates with
// the context error. Generation is never retried.
func (c *Client) Stream(ctx context.Context, req generate.Request) (*generate.Stream, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      true,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, message{Role: "user", Content: req.Prompt})

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/chat/completions", c.baseURL), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("completion request failed: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	stream := generate.NewStream()
	go c.pump(ctx, resp.Body, stream)
	return stream, nil
}

// pump scans the SSE body and forwards content deltas until the server sends
// [DONE], a finish reason, or the connection breaks.
func (c *Client) pump(ctx context.Context, body io.ReadCloser, stream *generate.Stream) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	finished := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			finished = true
			break
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			stream.Close(fmt.Errorf("malformed stream event: %w", err))
			return
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				if !stream.Send(ctx, choice.Delta.Content) {
					stream.Close(ctx.Err())
					return
				}
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				finished = true
			}
		}
		if finished {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			stream.Close(ctx.Err())
			return
		}
		stream.Close(fmt.Errorf("stream read failed: %w", err))
		return
	}
	if !finished {
		stream.Close(errors.New("stream ended unexpectedly"))
		return
	}
	stream.Close(nil)
}
