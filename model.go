package ragblade

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/flarexio/ragblade/chunker"
	"github.com/flarexio/ragblade/history"
	"github.com/flarexio/ragblade/llm"
	"github.com/flarexio/ragblade/vector"
)

var (
	ErrInvalidCollectionName = errors.New("invalid collection name")
	ErrEmptyQuery            = errors.New("query is empty")
	ErrEmptyText             = errors.New("text is empty")
	ErrStreamTerminated      = errors.New("stream already terminated")
)

type Config struct {
	Ollama    OllamaConfig    `yaml:"ollama"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Vector    vector.Config   `yaml:"vector"`
	History   HistoryConfig   `yaml:"history"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

type OllamaConfig struct {
	BaseURL    string `yaml:"baseURL"`
	ChatModel  string `yaml:"chatModel"`
	EmbedModel string `yaml:"embedModel"`
}

type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type HistoryConfig struct {
	Path   string `yaml:"path"`
	Window int    `yaml:"window"`
}

type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

const DefaultTopK = 5

type Turn = history.Turn

type CollectionInfo struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

type QueryRequest struct {
	Collection string `json:"collection"`
	Query      string `json:"query"`
	NResults   int    `json:"n_results,omitempty"`
}

type RetrievedDocument struct {
	Content string  `json:"content"`
	Score   float32 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

type QueryResult struct {
	Query              string              `json:"query"`
	Answer             string              `json:"answer"`
	Thinking           string              `json:"thinking,omitempty"`
	RetrievedDocuments []RetrievedDocument `json:"retrieved_documents"`
}

// StoredDocument is one chunk as held by a collection's index.
type StoredDocument struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type EventType string

const (
	EventDocuments EventType = "documents"
	EventThinking  EventType = "thinking"
	EventContent   EventType = "content"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Event is one increment of a streaming query. Thinking events carry the
// cumulative trace in Content; content events carry the delta in Content
// and the cumulative answer in FullContent, so a consumer can rebuild
// final state from the sequence alone. Exactly one done or error event
// terminates a stream.
type Event struct {
	Type        EventType           `json:"type"`
	Documents   []RetrievedDocument `json:"documents,omitempty"`
	Content     string              `json:"content,omitempty"`
	FullContent string              `json:"full_content,omitempty"`
	Thinking    string              `json:"thinking,omitempty"`
}

// Terminal reports whether the event ends its stream.
func (e Event) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

var collectionNameRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateCollectionName rejects empty and path-unsafe names so a
// collection can never escape its storage namespace.
func ValidateCollectionName(name string) error {
	if name == "" || len(name) > 64 {
		return ErrInvalidCollectionName
	}

	if !collectionNameRegexp.MatchString(name) {
		return ErrInvalidCollectionName
	}

	if strings.Contains(name, "..") {
		return ErrInvalidCollectionName
	}

	return nil
}

// ChunkDocument builds the index document for one chunk. Document IDs are
// sequential within a collection; seq doubles as the similarity tie-break.
func ChunkDocument(seq int, content, source string) vector.Document {
	return vector.Document{
		ID:      DocumentID(seq),
		Content: content,
		Metadata: map[string]string{
			vector.MetadataSource: source,
			vector.MetadataSeq:    strconv.Itoa(seq),
		},
	}
}

func DocumentID(seq int) string {
	return "doc_" + strconv.Itoa(seq)
}

// BuildContext renders retrieved chunks into the prompt context block, in
// ranked order.
func BuildContext(docs []RetrievedDocument) string {
	if len(docs) == 0 {
		return "No relevant documents found."
	}

	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = fmt.Sprintf("[Document %d]\n%s", i+1, doc.Content)
	}

	return strings.Join(parts, "\n\n")
}

// BuildPrompt assembles the generation prompt from the retrieved context
// and the user's question.
func BuildPrompt(query string, docs []RetrievedDocument) string {
	return fmt.Sprintf(`Answer the question based on the context below. If the context contains no relevant information, answer from your own knowledge.

Context:
%s

Question: %s

Provide an accurate, detailed answer:`, BuildContext(docs), query)
}

// BuildMessages folds the bounded history window and the prompt into the
// ordered message list for the generation model.
func BuildMessages(window []Turn, prompt string) []llm.Message {
	messages := make([]llm.Message, 0, len(window)+1)
	for _, turn := range window {
		messages = append(messages, llm.Message{
			Role:    llm.Role(turn.Role),
			Content: turn.Content,
		})
	}

	return append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: prompt,
	})
}

// NewSplitter builds the chunker configured for this service.
func (cfg ChunkingConfig) NewSplitter() *chunker.Splitter {
	return chunker.NewSplitter(cfg.Size, cfg.Overlap)
}
