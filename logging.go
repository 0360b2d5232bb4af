package ragblade

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "ragblade"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) CreateCollection(ctx context.Context, name string) error {
	log := mw.log.With(
		zap.String("action", "create_collection"),
		zap.String("collection", name),
	)

	err := mw.next.CreateCollection(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("collection created")
	return nil
}

func (mw *loggingMiddleware) DeleteCollection(ctx context.Context, name string) error {
	log := mw.log.With(
		zap.String("action", "delete_collection"),
		zap.String("collection", name),
	)

	err := mw.next.DeleteCollection(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("collection deleted")
	return nil
}

func (mw *loggingMiddleware) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	log := mw.log.With(
		zap.String("action", "list_collections"),
	)

	infos, err := mw.next.ListCollections(ctx)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("collections listed", zap.Int("count", len(infos)))
	return infos, nil
}

func (mw *loggingMiddleware) GetCollection(ctx context.Context, name string) (CollectionInfo, error) {
	log := mw.log.With(
		zap.String("action", "get_collection"),
		zap.String("collection", name),
	)

	info, err := mw.next.GetCollection(ctx, name)
	if err != nil {
		log.Error(err.Error())
		return CollectionInfo{}, err
	}

	return info, nil
}

func (mw *loggingMiddleware) AddText(ctx context.Context, collection, text, source string) (int, error) {
	log := mw.log.With(
		zap.String("action", "add_text"),
		zap.String("collection", collection),
		zap.String("source", source),
	)

	count, err := mw.next.AddText(ctx, collection, text, source)
	if err != nil {
		log.Error(err.Error())
		return 0, err
	}

	log.Info("text added", zap.Int("chunks", count))
	return count, nil
}

func (mw *loggingMiddleware) ListDocuments(ctx context.Context, collection string, limit int) ([]StoredDocument, error) {
	log := mw.log.With(
		zap.String("action", "list_documents"),
		zap.String("collection", collection),
	)

	docs, err := mw.next.ListDocuments(ctx, collection, limit)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("documents listed", zap.Int("count", len(docs)))
	return docs, nil
}

func (mw *loggingMiddleware) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	log := mw.log.With(
		zap.String("action", "query"),
		zap.String("collection", req.Collection),
	)

	result, err := mw.next.Query(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("query answered", zap.Int("documents", len(result.RetrievedDocuments)))
	return result, nil
}

func (mw *loggingMiddleware) Chat(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	log := mw.log.With(
		zap.String("action", "chat"),
		zap.String("collection", req.Collection),
	)

	result, err := mw.next.Chat(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("chat answered", zap.Int("documents", len(result.RetrievedDocuments)))
	return result, nil
}

func (mw *loggingMiddleware) ChatStream(ctx context.Context, req QueryRequest) (<-chan Event, error) {
	log := mw.log.With(
		zap.String("action", "chat_stream"),
		zap.String("collection", req.Collection),
	)

	events, err := mw.next.ChatStream(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	log.Info("stream started")
	return events, nil
}

func (mw *loggingMiddleware) History(ctx context.Context, collection string) ([]Turn, error) {
	log := mw.log.With(
		zap.String("action", "history"),
		zap.String("collection", collection),
	)

	turns, err := mw.next.History(ctx, collection)
	if err != nil {
		log.Error(err.Error())
		return nil, err
	}

	return turns, nil
}

func (mw *loggingMiddleware) ClearHistory(ctx context.Context, collection string) error {
	log := mw.log.With(
		zap.String("action", "clear_history"),
		zap.String("collection", collection),
	)

	err := mw.next.ClearHistory(ctx, collection)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("history cleared")
	return nil
}
