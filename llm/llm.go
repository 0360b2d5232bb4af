// Package llm defines the capability interfaces for the embedding and
// text-generation backends consumed by the service.
package llm

import (
	"context"
	"errors"
)

// ErrModelUnavailable reports that a model backend could not be loaded
// or invoked.
var ErrModelUnavailable = errors.New("model unavailable")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Embedder maps texts to fixed-dimension vectors, one per input and in
// input order. Vectors from different model instances are not comparable
// and must not be mixed within one collection.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Token is one increment of a streamed generation. Thinking and Content
// are deltas on separate channels of the same stream; Done marks the end.
// A non-nil Err terminates the stream.
type Token struct {
	Content  string
	Thinking string
	Done     bool
	Err      error
}

type Completion struct {
	Content  string
	Thinking string
}

// Generator produces a chat completion from an ordered message list,
// either buffered or as a token stream. Implementations must stop
// generating when ctx is cancelled.
type Generator interface {
	Chat(ctx context.Context, messages []Message) (Completion, error)
	ChatStream(ctx context.Context, messages []Message) (<-chan Token, error)
}
