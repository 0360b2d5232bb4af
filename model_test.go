package ragblade

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/ragblade/llm"
	"github.com/flarexio/ragblade/vector"
)

func TestValidateCollectionName(t *testing.T) {
	valid := []string{
		"kb",
		"kb1",
		"my-knowledge.base_01",
		"0start",
		strings.Repeat("a", 64),
	}

	for _, name := range valid {
		assert.NoError(t, ValidateCollectionName(name), name)
	}

	invalid := []string{
		"",
		".hidden",
		"-lead",
		"has space",
		"slash/name",
		"back\\slash",
		"dots..inside",
		"中文名稱",
		strings.Repeat("a", 65),
	}

	for _, name := range invalid {
		assert.ErrorIs(t, ValidateCollectionName(name), ErrInvalidCollectionName, name)
	}
}

func TestChunkDocument(t *testing.T) {
	doc := ChunkDocument(3, "The sky is blue.", "notes.txt")

	assert.Equal(t, "doc_3", doc.ID)
	assert.Equal(t, "The sky is blue.", doc.Content)
	assert.Equal(t, "notes.txt", doc.Metadata[vector.MetadataSource])
	assert.Equal(t, "3", doc.Metadata[vector.MetadataSeq])
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "No relevant documents found.", BuildContext(nil))

	docs := []RetrievedDocument{
		{Content: "The sky is blue."},
		{Content: "The grass is green."},
	}

	context := BuildContext(docs)
	assert.Equal(t, "[Document 1]\nThe sky is blue.\n\n[Document 2]\nThe grass is green.", context)
}

func TestBuildPrompt(t *testing.T) {
	docs := []RetrievedDocument{
		{Content: "The sky is blue."},
	}

	prompt := BuildPrompt("What color is the sky?", docs)

	assert.Contains(t, prompt, "[Document 1]\nThe sky is blue.")
	assert.Contains(t, prompt, "Question: What color is the sky?")
}

func TestBuildMessages(t *testing.T) {
	window := []Turn{
		{Role: "user", Content: "What color is the sky?"},
		{Role: "assistant", Content: "The sky is blue."},
	}

	messages := BuildMessages(window, "And the grass?")

	assert.Len(t, messages, 3)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, messages[1].Role)
	assert.Equal(t, llm.RoleUser, messages[2].Role)
	assert.Equal(t, "And the grass?", messages[2].Content)
}

func TestEventJSON(t *testing.T) {
	event := Event{
		Type:        EventContent,
		Content:     " blue.",
		FullContent: "The sky is blue.",
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}

	assert.JSONEq(t, `{"type":"content","content":" blue.","full_content":"The sky is blue."}`, string(data))

	event = Event{Type: EventThinking, Content: "Considering the context."}

	data, err = json.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}

	assert.JSONEq(t, `{"type":"thinking","content":"Considering the context."}`, string(data))
}

func TestEventTerminal(t *testing.T) {
	assert.False(t, Event{Type: EventDocuments}.Terminal())
	assert.False(t, Event{Type: EventThinking}.Terminal())
	assert.False(t, Event{Type: EventContent}.Terminal())
	assert.True(t, Event{Type: EventDone}.Terminal())
	assert.True(t, Event{Type: EventError}.Terminal())
}

func TestConfigYAML(t *testing.T) {
	input := `
ollama:
  baseURL: http://localhost:11434
  chatModel: deepseek-r1:8b
  embedModel: nomic-embed-text
chunking:
  size: 500
  overlap: 50
vector:
  persistent: true
  path: ./data/vectors
history:
  path: ./data/history
  window: 20
retrieval:
  topK: 5
`

	var cfg Config
	err := yaml.Unmarshal([]byte(input), &cfg)
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "deepseek-r1:8b", cfg.Ollama.ChatModel)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.True(t, cfg.Vector.Persistent)
	assert.Equal(t, "./data/vectors", cfg.Vector.Path)
	assert.Equal(t, 20, cfg.History.Window)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}
