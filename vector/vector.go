package vector

import (
	"context"
	"errors"
)

var (
	ErrCollectionNotFound      = errors.New("collection not found")
	ErrCollectionAlreadyExists = errors.New("collection already exists")
)

// Well-known metadata keys. MetadataSeq holds the insertion sequence of a
// document within its collection and breaks similarity ties
// deterministically.
const (
	MetadataSource = "source"
	MetadataSeq    = "seq"
)

type Config struct {
	Persistent bool   `yaml:"persistent"`
	Path       string `yaml:"path"`
}

// DB is a registry of named similarity-search collections.
type DB interface {
	CreateCollection(name string) (Collection, error)
	GetCollection(name string) (Collection, error)
	DeleteCollection(name string) error
	ListCollections() (map[string]Collection, error)
}

// Collection stores (embedding, content, metadata) documents and answers
// nearest-neighbor queries. Implementations must be safe for concurrent use.
type Collection interface {
	AddDocuments(ctx context.Context, docs []Document) (int, error)
	Query(ctx context.Context, embedding []float32, k int) ([]Result, error)
	Get(ctx context.Context, id string) (Document, error)
	Count() int
}

type Document struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"embedding,omitempty"`
}

// Result is one query hit. Score is a similarity measure; higher is closer.
type Result struct {
	Document
	Score float32 `json:"score"`
}
