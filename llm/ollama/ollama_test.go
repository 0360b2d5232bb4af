package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade/llm"
)

func newTestServer(t *testing.T, chat http.HandlerFunc, embed http.HandlerFunc) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"version":"0.9.0"}`)
	})

	if chat != nil {
		mux.HandleFunc("/api/chat", chat)
	}

	if embed != nil {
		mux.HandleFunc("/api/embeddings", embed)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestEmbed(t *testing.T) {
	var prompts []string

	server := newTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}

		assert.Equal(t, "nomic-embed-text", req.Model)
		prompts = append(prompts, req.Prompt)

		json.NewEncoder(w).Encode(embedResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	})

	client := NewClient(Config{BaseURL: server.URL})

	embeddings, err := client.Embed(context.Background(), []string{"The sky is blue.", "The grass is green."})
	if err != nil {
		t.Fatal(err)
	}

	assert.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embeddings[0])
	assert.Equal(t, []string{"The sky is blue.", "The grass is green."}, prompts)
}

func TestEmbedRetriesOnce(t *testing.T) {
	attempts := 0

	server := newTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		json.NewEncoder(w).Encode(embedResponse{
			Embedding: []float32{1, 0},
		})
	})

	client := NewClient(Config{BaseURL: server.URL})

	embeddings, err := client.Embed(context.Background(), []string{"text"})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, 2, attempts)
	assert.Equal(t, []float32{1, 0}, embeddings[0])
}

func TestEmbedGivesUpAfterRetry(t *testing.T) {
	attempts := 0

	server := newTestServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.Embed(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
	assert.Equal(t, 2, attempts)
}

func TestChat(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}

		assert.False(t, req.Stream)
		assert.Equal(t, "deepseek-r1:8b", req.Model)
		assert.Len(t, req.Messages, 1)

		json.NewEncoder(w).Encode(chatResponse{
			Message: chatMessage{
				Role:     "assistant",
				Content:  "The sky is blue.",
				Thinking: "The context says so.",
			},
			Done: true,
		})
	}, nil)

	client := NewClient(Config{BaseURL: server.URL})

	completion, err := client.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "What color is the sky?"},
	})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "The sky is blue.", completion.Content)
	assert.Equal(t, "The context says so.", completion.Thinking)
}

func TestChatStream(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
			return
		}

		assert.True(t, req.Stream)

		lines := []chatResponse{
			{Message: chatMessage{Role: "assistant", Thinking: "The context "}},
			{Message: chatMessage{Role: "assistant", Reasoning: "mentions the sky."}},
			{Message: chatMessage{Role: "assistant", Content: "The sky "}},
			{Message: chatMessage{Role: "assistant", Content: "is blue."}},
			{Done: true},
		}

		enc := json.NewEncoder(w)
		for _, line := range lines {
			enc.Encode(line)
		}
	}, nil)

	client := NewClient(Config{BaseURL: server.URL})

	tokens, err := client.ChatStream(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "What color is the sky?"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var content, thinking string
	var done bool
	for token := range tokens {
		if token.Err != nil {
			t.Fatal(token.Err)
		}

		content += token.Content
		thinking += token.Thinking
		done = token.Done
	}

	assert.Equal(t, "The sky is blue.", content)
	assert.Equal(t, "The context mentions the sky.", thinking)
	assert.True(t, done)
}

func TestChatStreamSkipsMalformedLines(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"ok"}}`)
		fmt.Fprintln(w, `{garbage`)
		fmt.Fprintln(w, `{"done":true}`)
	}, nil)

	client := NewClient(Config{BaseURL: server.URL})

	tokens, err := client.ChatStream(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	var content string
	var done bool
	for token := range tokens {
		content += token.Content
		done = token.Done
	}

	assert.Equal(t, "ok", content)
	assert.True(t, done)
}

func TestChatStreamErrorStatus(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.ChatStream(context.Background(), nil)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
}

func TestBackendUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.Embed(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)

	// The availability outcome is cached for the client's lifetime.
	_, err = client.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, llm.ErrModelUnavailable)
}

func TestConfigDefaults(t *testing.T) {
	client := NewClient(Config{})

	assert.Equal(t, DefaultBaseURL, client.cfg.BaseURL)
	assert.Equal(t, DefaultChatModel, client.cfg.ChatModel)
	assert.Equal(t, DefaultEmbedModel, client.cfg.EmbedModel)
}
