package ragblade

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/chunker"
	"github.com/flarexio/ragblade/history"
	"github.com/flarexio/ragblade/llm"
	"github.com/flarexio/ragblade/vector"
)

// Service defines the core logic of RAGBlade.
type Service interface {

	// Close gracefully shuts down the service.
	Close() error

	// CreateCollection registers a new named collection.
	CreateCollection(ctx context.Context, name string) error

	// DeleteCollection removes a collection, its index and its history.
	DeleteCollection(ctx context.Context, name string) error

	// ListCollections returns every collection with its document count.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// GetCollection returns one collection's info.
	GetCollection(ctx context.Context, name string) (CollectionInfo, error)

	// AddText chunks, embeds and indexes extracted text. Returns the
	// number of chunks added; all-or-nothing per call.
	AddText(ctx context.Context, collection, text, source string) (int, error)

	// ListDocuments returns up to limit stored chunks in insertion order.
	ListDocuments(ctx context.Context, collection string, limit int) ([]StoredDocument, error)

	// Query answers a question against a collection without recording
	// the exchange in history.
	Query(ctx context.Context, req QueryRequest) (*QueryResult, error)

	// Chat answers a question and appends the exchange to the
	// collection's history on success.
	Chat(ctx context.Context, req QueryRequest) (*QueryResult, error)

	// ChatStream answers a question as an ordered event stream,
	// terminated by exactly one done or error event. The exchange is
	// appended to history only on normal completion.
	ChatStream(ctx context.Context, req QueryRequest) (<-chan Event, error)

	// History returns the full conversation log of a collection.
	History(ctx context.Context, collection string) ([]Turn, error)

	// ClearHistory empties a collection's conversation log.
	ClearHistory(ctx context.Context, collection string) error
}

type ServiceMiddleware func(Service) Service

func NewService(ctx context.Context, cfg Config,
	db vector.DB, store *history.Store,
	embedder llm.Embedder, generator llm.Generator,
) (Service, error) {
	log := zap.L().With(
		zap.String("service", "ragblade"),
	)

	ctx, cancel := context.WithCancel(ctx)

	topK := cfg.Retrieval.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	window := cfg.History.Window
	if window <= 0 {
		window = history.DefaultWindow
	}

	return &service{
		db:        db,
		store:     store,
		embedder:  embedder,
		generator: generator,
		splitter:  cfg.Chunking.NewSplitter(),

		topK:   topK,
		window: window,
		writes: make(map[string]*sync.Mutex),

		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

type service struct {
	db        vector.DB
	store     *history.Store
	embedder  llm.Embedder
	generator llm.Generator
	splitter  *chunker.Splitter

	topK   int
	window int

	// Per-collection write serialization; reads are not blocked.
	writesMutex sync.Mutex
	writes      map[string]*sync.Mutex

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.cancel = nil
	}

	return nil
}

// writeLock returns the write mutex of one collection. Writes to distinct
// collections never block one another.
func (svc *service) writeLock(name string) *sync.Mutex {
	svc.writesMutex.Lock()
	defer svc.writesMutex.Unlock()

	mu, ok := svc.writes[name]
	if !ok {
		mu = new(sync.Mutex)
		svc.writes[name] = mu
	}

	return mu
}

func (svc *service) CreateCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}

	_, err := svc.db.CreateCollection(name)
	return err
}

func (svc *service) DeleteCollection(ctx context.Context, name string) error {
	if err := ValidateCollectionName(name); err != nil {
		return err
	}

	mu := svc.writeLock(name)
	mu.Lock()
	defer mu.Unlock()

	if err := svc.db.DeleteCollection(name); err != nil {
		return err
	}

	if err := svc.store.Delete(name); err != nil {
		return err
	}

	svc.writesMutex.Lock()
	delete(svc.writes, name)
	svc.writesMutex.Unlock()

	return nil
}

func (svc *service) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	collections, err := svc.db.ListCollections()
	if err != nil {
		return nil, err
	}

	infos := make([]CollectionInfo, 0, len(collections))
	for name, collection := range collections {
		infos = append(infos, CollectionInfo{
			Name:          name,
			DocumentCount: collection.Count(),
		})
	}

	return infos, nil
}

func (svc *service) GetCollection(ctx context.Context, name string) (CollectionInfo, error) {
	if err := ValidateCollectionName(name); err != nil {
		return CollectionInfo{}, err
	}

	collection, err := svc.db.GetCollection(name)
	if err != nil {
		return CollectionInfo{}, err
	}

	return CollectionInfo{
		Name:          name,
		DocumentCount: collection.Count(),
	}, nil
}

func (svc *service) AddText(ctx context.Context, name, text, source string) (int, error) {
	if err := ValidateCollectionName(name); err != nil {
		return 0, err
	}

	if _, err := svc.db.GetCollection(name); err != nil {
		return 0, err
	}

	chunks, err := svc.splitter.Split(text)
	if err != nil {
		return 0, ErrEmptyText
	}

	// Embed before touching the index so a backend failure leaves the
	// collection unchanged.
	embeddings, err := svc.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, err
	}

	mu := svc.writeLock(name)
	mu.Lock()
	defer mu.Unlock()

	// Re-resolve under the lock; the collection may have been deleted
	// while embedding, and a stale handle would write into a detached
	// index.
	collection, err := svc.db.GetCollection(name)
	if err != nil {
		return 0, err
	}

	base := collection.Count()

	docs := make([]vector.Document, len(chunks))
	for i, chunk := range chunks {
		doc := ChunkDocument(base+i, chunk, source)
		doc.Embedding = embeddings[i]
		docs[i] = doc
	}

	return collection.AddDocuments(ctx, docs)
}

func (svc *service) ListDocuments(ctx context.Context, name string, limit int) ([]StoredDocument, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}

	collection, err := svc.db.GetCollection(name)
	if err != nil {
		return nil, err
	}

	count := collection.Count()
	if limit <= 0 || limit > count {
		limit = count
	}

	docs := make([]StoredDocument, 0, limit)
	for i := 0; i < limit; i++ {
		doc, err := collection.Get(ctx, DocumentID(i))
		if err != nil {
			continue
		}

		docs = append(docs, StoredDocument{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}

	return docs, nil
}

// retrieve runs the shared front half of every query: validation, query
// embedding and top-K search.
func (svc *service) retrieve(ctx context.Context, req QueryRequest) ([]RetrievedDocument, error) {
	if err := ValidateCollectionName(req.Collection); err != nil {
		return nil, err
	}

	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	collection, err := svc.db.GetCollection(req.Collection)
	if err != nil {
		return nil, err
	}

	embeddings, err := svc.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, err
	}

	k := req.NResults
	if k <= 0 {
		k = svc.topK
	}

	results, err := collection.Query(ctx, embeddings[0], k)
	if err != nil {
		return nil, err
	}

	docs := make([]RetrievedDocument, len(results))
	for i, result := range results {
		docs[i] = RetrievedDocument{
			Content: result.Content,
			Score:   result.Score,
			Source:  result.Metadata[vector.MetadataSource],
		}
	}

	return docs, nil
}

func (svc *service) answer(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	docs, err := svc.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	window, err := svc.store.Window(req.Collection, svc.window)
	if err != nil {
		return nil, err
	}

	messages := BuildMessages(window, BuildPrompt(req.Query, docs))

	completion, err := svc.generator.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Query:              req.Query,
		Answer:             completion.Content,
		Thinking:           completion.Thinking,
		RetrievedDocuments: docs,
	}, nil
}

func (svc *service) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	return svc.answer(ctx, req)
}

func (svc *service) Chat(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	result, err := svc.answer(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := svc.record(req.Collection, req.Query, result.Answer); err != nil {
		return nil, err
	}

	return result, nil
}

func (svc *service) ChatStream(ctx context.Context, req QueryRequest) (<-chan Event, error) {
	docs, err := svc.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 16)

	go svc.stream(ctx, req, docs, events)

	return events, nil
}

// stream drives one generation and folds its tokens into the event
// sequence. The exchange is recorded only after a normal done token;
// cancellation or failure leaves history untouched.
func (svc *service) stream(ctx context.Context, req QueryRequest, docs []RetrievedDocument, events chan<- Event) {
	defer close(events)

	log := svc.log.With(
		zap.String("action", "chat_stream"),
		zap.String("collection", req.Collection),
		zap.String("query_id", uuid.NewString()),
	)

	if !emit(ctx, events, Event{Type: EventDocuments, Documents: docs}) {
		return
	}

	window, err := svc.store.Window(req.Collection, svc.window)
	if err != nil {
		log.Error(err.Error())
		emit(ctx, events, Event{Type: EventError, Content: err.Error()})
		return
	}

	messages := BuildMessages(window, BuildPrompt(req.Query, docs))

	tokens, err := svc.generator.ChatStream(ctx, messages)
	if err != nil {
		log.Error(err.Error())
		emit(ctx, events, Event{Type: EventError, Content: err.Error()})
		return
	}

	var full, thinking string

	for token := range tokens {
		if token.Err != nil {
			log.Error(token.Err.Error())
			emit(ctx, events, Event{Type: EventError, Content: token.Err.Error()})
			return
		}

		if token.Thinking != "" {
			thinking += token.Thinking
			if !emit(ctx, events, Event{Type: EventThinking, Content: thinking}) {
				return
			}
		}

		if token.Content != "" {
			full += token.Content
			if !emit(ctx, events, Event{
				Type:        EventContent,
				Content:     token.Content,
				FullContent: full,
			}) {
				return
			}
		}

		if token.Done {
			if err := svc.record(req.Collection, req.Query, full); err != nil {
				log.Error(err.Error())
				emit(ctx, events, Event{Type: EventError, Content: err.Error()})
				return
			}

			emit(ctx, events, Event{
				Type:        EventDone,
				FullContent: full,
				Thinking:    thinking,
			})

			log.Info("stream completed", zap.Int("documents", len(docs)))
			return
		}
	}

	// Token source closed without done: the generation connection failed
	// mid-stream.
	emit(ctx, events, Event{Type: EventError, Content: "generation stream interrupted"})
}

func emit(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// record appends a completed exchange to the collection's history. Only
// the final answer is recorded, never the thinking trace.
func (svc *service) record(collection, query, answer string) error {
	now := time.Now()

	return svc.store.Append(collection,
		Turn{Role: history.RoleUser, Content: query, Timestamp: now},
		Turn{Role: history.RoleAssistant, Content: answer, Timestamp: now},
	)
}

func (svc *service) History(ctx context.Context, collection string) ([]Turn, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	if _, err := svc.db.GetCollection(collection); err != nil {
		return nil, err
	}

	return svc.store.All(collection)
}

func (svc *service) ClearHistory(ctx context.Context, collection string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	if _, err := svc.db.GetCollection(collection); err != nil {
		return err
	}

	return svc.store.Clear(collection)
}
