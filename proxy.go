package ragblade

import (
	"context"
	"errors"
)

// ProxyMiddleware implements Service on top of a remote EndpointSet, for
// clients that reach the service over a request/reply transport.
// Streaming queries are not supported through the proxy.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) CreateCollection(ctx context.Context, name string) error {
	req := CreateCollectionRequest{
		Name: name,
	}

	_, err := mw.endpoints.CreateCollection(ctx, req)
	return err
}

func (mw *proxyMiddleware) DeleteCollection(ctx context.Context, name string) error {
	_, err := mw.endpoints.DeleteCollection(ctx, name)
	return err
}

func (mw *proxyMiddleware) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	resp, err := mw.endpoints.ListCollections(ctx, nil)
	if err != nil {
		return nil, err
	}

	infos, ok := resp.([]CollectionInfo)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return infos, nil
}

func (mw *proxyMiddleware) GetCollection(ctx context.Context, name string) (CollectionInfo, error) {
	resp, err := mw.endpoints.GetCollection(ctx, name)
	if err != nil {
		return CollectionInfo{}, err
	}

	info, ok := resp.(CollectionInfo)
	if !ok {
		return CollectionInfo{}, errors.New("invalid response type")
	}

	return info, nil
}

func (mw *proxyMiddleware) AddText(ctx context.Context, collection, text, source string) (int, error) {
	req := AddTextRequest{
		Collection: collection,
		Text:       text,
		Source:     source,
	}

	resp, err := mw.endpoints.AddText(ctx, req)
	if err != nil {
		return 0, err
	}

	result, ok := resp.(AddTextResponse)
	if !ok {
		return 0, errors.New("invalid response type")
	}

	return result.ChunkCount, nil
}

func (mw *proxyMiddleware) ListDocuments(ctx context.Context, collection string, limit int) ([]StoredDocument, error) {
	req := ListDocumentsRequest{
		Collection: collection,
		Limit:      limit,
	}

	resp, err := mw.endpoints.ListDocuments(ctx, req)
	if err != nil {
		return nil, err
	}

	docs, ok := resp.([]StoredDocument)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return docs, nil
}

func (mw *proxyMiddleware) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	resp, err := mw.endpoints.Query(ctx, req)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(*QueryResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result, nil
}

func (mw *proxyMiddleware) Chat(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	resp, err := mw.endpoints.Chat(ctx, req)
	if err != nil {
		return nil, err
	}

	result, ok := resp.(*QueryResult)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return result, nil
}

func (mw *proxyMiddleware) ChatStream(ctx context.Context, req QueryRequest) (<-chan Event, error) {
	return nil, errors.New("streaming is not supported by the proxy")
}

func (mw *proxyMiddleware) History(ctx context.Context, collection string) ([]Turn, error) {
	resp, err := mw.endpoints.History(ctx, collection)
	if err != nil {
		return nil, err
	}

	turns, ok := resp.([]Turn)
	if !ok {
		return nil, errors.New("invalid response type")
	}

	return turns, nil
}

func (mw *proxyMiddleware) ClearHistory(ctx context.Context, collection string) error {
	_, err := mw.endpoints.ClearHistory(ctx, collection)
	return err
}
