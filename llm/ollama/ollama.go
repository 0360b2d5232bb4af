// Package ollama implements the llm capability interfaces against a
// local Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/llm"
)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultChatModel  = "deepseek-r1:8b"
	DefaultEmbedModel = "nomic-embed-text"
)

type Config struct {
	BaseURL    string `yaml:"baseURL"`
	ChatModel  string `yaml:"chatModel"`
	EmbedModel string `yaml:"embedModel"`
}

// Client talks to one Ollama instance. It is safe for concurrent use;
// the availability check runs once for the life of the process.
type Client struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger

	loadOnce sync.Once
	loadErr  error
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}

	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
		log: zap.L().With(
			zap.String("adapter", "ollama"),
		),
	}
}

// load verifies the backend is reachable. The first caller performs the
// check; concurrent callers wait and share its outcome.
func (c *Client) load(ctx context.Context) error {
	c.loadOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/version", nil)
		if err != nil {
			c.loadErr = err
			return
		}

		resp, err := c.client.Do(req)
		if err != nil {
			c.loadErr = err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			c.loadErr = fmt.Errorf("ollama returned status %d", resp.StatusCode)
			return
		}

		c.log.Info("ollama backend ready",
			zap.String("chat_model", c.cfg.ChatModel),
			zap.String("embed_model", c.cfg.EmbedModel),
		)
	})

	if c.loadErr != nil {
		return fmt.Errorf("%w: %s", llm.ErrModelUnavailable, c.loadErr.Error())
	}

	return nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := c.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}

		embeddings[i] = embedding
	}

	return embeddings, nil
}

func (c *Client) embedOne(ctx context.Context, text string) ([]float32, error) {
	data, err := json.Marshal(embedRequest{
		Model:  c.cfg.EmbedModel,
		Prompt: text,
	})

	if err != nil {
		return nil, err
	}

	var embedding []float32

	// One retry with backoff on transient backend failures, never more.
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.cfg.BaseURL+"/api/embeddings", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: status %d", llm.ErrModelUnavailable, resp.StatusCode)
		}

		var out embedResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return err
		}

		embedding = out.Embedding
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return embedding, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Thinking  string `json:"thinking,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// thinking returns the reasoning delta of a stream line. Models expose
// it under different field names depending on version.
func (m chatMessage) thinking() string {
	if m.Thinking != "" {
		return m.Thinking
	}

	return m.Reasoning
}

func (c *Client) Chat(ctx context.Context, messages []llm.Message) (llm.Completion, error) {
	if err := c.load(ctx); err != nil {
		return llm.Completion{}, err
	}

	data, err := json.Marshal(chatRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
		Stream:   false,
	})

	if err != nil {
		return llm.Completion{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return llm.Completion{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("%w: %s", llm.ErrModelUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return llm.Completion{}, fmt.Errorf("%w: status %d", llm.ErrModelUnavailable, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return llm.Completion{}, err
	}

	return llm.Completion{
		Content:  out.Message.Content,
		Thinking: out.Message.thinking(),
	}, nil
}

func (c *Client) ChatStream(ctx context.Context, messages []llm.Message) (<-chan llm.Token, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(chatRequest{
		Model:    c.cfg.ChatModel,
		Messages: messages,
		Stream:   true,
	})

	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", llm.ErrModelUnavailable, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", llm.ErrModelUnavailable, resp.StatusCode)
	}

	tokens := make(chan llm.Token, 16)

	go func() {
		defer close(tokens)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				c.log.Warn("skipping malformed stream line", zap.Error(err))
				continue
			}

			token := llm.Token{
				Content:  chunk.Message.Content,
				Thinking: chunk.Message.thinking(),
				Done:     chunk.Done,
			}

			select {
			case tokens <- token:
			case <-ctx.Done():
				return
			}

			if chunk.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case tokens <- llm.Token{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return tokens, nil
}
