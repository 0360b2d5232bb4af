package chromem

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/flarexio/ragblade/vector"
)

func NewChromemVectorDB(cfg vector.Config) (vector.DB, error) {
	var db *chromem.DB
	if !cfg.Persistent {
		db = chromem.NewDB()
	} else {
		d, err := chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}

		db = d
	}

	return &chromemVectorDB{db}, nil
}

type chromemVectorDB struct {
	db *chromem.DB
}

// embeddings are always supplied by the caller; chromem must never
// compute its own.
func noEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("documents must carry precomputed embeddings")
}

func (v *chromemVectorDB) CreateCollection(name string) (vector.Collection, error) {
	if c := v.db.GetCollection(name, noEmbeddingFunc); c != nil {
		return nil, vector.ErrCollectionAlreadyExists
	}

	c, err := v.db.CreateCollection(name, nil, noEmbeddingFunc)
	if err != nil {
		return nil, err
	}

	return &collection{c}, nil
}

func (v *chromemVectorDB) GetCollection(name string) (vector.Collection, error) {
	c := v.db.GetCollection(name, noEmbeddingFunc)
	if c == nil {
		return nil, vector.ErrCollectionNotFound
	}

	return &collection{c}, nil
}

func (v *chromemVectorDB) DeleteCollection(name string) error {
	if c := v.db.GetCollection(name, noEmbeddingFunc); c == nil {
		return vector.ErrCollectionNotFound
	}

	return v.db.DeleteCollection(name)
}

func (v *chromemVectorDB) ListCollections() (map[string]Collection, error) {
	collections := make(map[string]Collection)
	for name := range v.db.ListCollections() {
		c := v.db.GetCollection(name, noEmbeddingFunc)
		if c == nil {
			continue
		}

		collections[name] = &collection{c}
	}

	return collections, nil
}

type Collection = vector.Collection

type collection struct {
	collection *chromem.Collection
}

func (c *collection) AddDocuments(ctx context.Context, docs []vector.Document) (int, error) {
	documents := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		documents[i] = chromem.Document{
			ID:        doc.ID,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
			Content:   doc.Content,
		}
	}

	if err := c.collection.AddDocuments(ctx, documents, 1); err != nil {
		return 0, err
	}

	return len(documents), nil
}

func (c *collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.Result, error) {
	if count := c.collection.Count(); k > count {
		k = count
	}

	if k <= 0 {
		return []vector.Result{}, nil
	}

	results, err := c.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]vector.Result, len(results))
	for i, result := range results {
		docs[i] = vector.Result{
			Document: vector.Document{
				ID:        result.ID,
				Metadata:  result.Metadata,
				Embedding: result.Embedding,
				Content:   result.Content,
			},
			Score: result.Similarity,
		}
	}

	// chromem orders by similarity but leaves ties unspecified; pin
	// equal scores to insertion order.
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}

		return seq(docs[i].Document) < seq(docs[j].Document)
	})

	return docs, nil
}

func (c *collection) Get(ctx context.Context, id string) (vector.Document, error) {
	document, err := c.collection.GetByID(ctx, id)
	if err != nil {
		return vector.Document{}, err
	}

	return vector.Document{
		ID:        document.ID,
		Metadata:  document.Metadata,
		Embedding: document.Embedding,
		Content:   document.Content,
	}, nil
}

func (c *collection) Count() int {
	return c.collection.Count()
}

func seq(doc vector.Document) int {
	n, err := strconv.Atoi(doc.Metadata[vector.MetadataSeq])
	if err != nil {
		return 0
	}

	return n
}
