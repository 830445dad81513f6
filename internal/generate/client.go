package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned by a client that has no API key.
var ErrNotConfigured = errors.New("generate: api key not configured")

// DefaultEndpoint is the chat completions URL used when none is configured.
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client streams a chat completion, calling emit for every text delta.
type Client interface {
	Stream(ctx context.Context, messages []Message, emit func(string) error) error
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int
	HTTPClient  *http.Client
}

// ClientConfig carries the settings NewOpenAIClient needs.
type ClientConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// NewOpenAIClient builds a client from cfg, applying defaults.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	c := &OpenAIClient{
		Endpoint:    cfg.Endpoint,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	return c
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream implements Client.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, emit func(string) error) error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Stream:      true,
		Temperature: c.Temperature,
	})
	if err != nil {
		return fmt.Errorf("generate: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("generate: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := doWithRetry(ctx, client, req, c.MaxRetries)
	if err != nil {
		return fmt.Errorf("generate: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("generate: endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}
		var chunk chatChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("generate: decode chunk: %w", err)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := emit(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("generate: read stream: %w", err)
	}
	return nil
}
