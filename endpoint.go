package ragblade

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	CreateCollection endpoint.Endpoint
	DeleteCollection endpoint.Endpoint
	ListCollections  endpoint.Endpoint
	GetCollection    endpoint.Endpoint
	AddText          endpoint.Endpoint
	ListDocuments    endpoint.Endpoint
	Query            endpoint.Endpoint
	Chat             endpoint.Endpoint
	ChatStream       endpoint.Endpoint
	History          endpoint.Endpoint
	ClearHistory     endpoint.Endpoint
}

type CreateCollectionRequest struct {
	Name string `json:"name"`
}

func CreateCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(CreateCollectionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.CreateCollection(ctx, req.Name)
		return nil, err
	}
}

func DeleteCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		name, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.DeleteCollection(ctx, name)
		return nil, err
	}
}

func ListCollectionsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		return svc.ListCollections(ctx)
	}
}

func GetCollectionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		name, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.GetCollection(ctx, name)
	}
}

type AddTextRequest struct {
	Collection string `json:"collection"`
	Text       string `json:"text"`
	Source     string `json:"source,omitempty"`
}

type AddTextResponse struct {
	ChunkCount int `json:"chunk_count"`
}

func AddTextEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AddTextRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		count, err := svc.AddText(ctx, req.Collection, req.Text, req.Source)
		if err != nil {
			return nil, err
		}

		return AddTextResponse{ChunkCount: count}, nil
	}
}

type ListDocumentsRequest struct {
	Collection string `json:"collection"`
	Limit      int    `json:"limit,omitempty"`
}

func ListDocumentsEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ListDocumentsRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.ListDocuments(ctx, req.Collection, req.Limit)
	}
}

func QueryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Query(ctx, req)
	}
}

func ChatEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Chat(ctx, req)
	}
}

func ChatStreamEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(QueryRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.ChatStream(ctx, req)
	}
}

func HistoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		collection, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.History(ctx, collection)
	}
}

func ClearHistoryEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		collection, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.ClearHistory(ctx, collection)
		return nil, err
	}
}

// MakeEndpoints wires every operation of svc into an EndpointSet.
func MakeEndpoints(svc Service) EndpointSet {
	return EndpointSet{
		CreateCollection: CreateCollectionEndpoint(svc),
		DeleteCollection: DeleteCollectionEndpoint(svc),
		ListCollections:  ListCollectionsEndpoint(svc),
		GetCollection:    GetCollectionEndpoint(svc),
		AddText:          AddTextEndpoint(svc),
		ListDocuments:    ListDocumentsEndpoint(svc),
		Query:            QueryEndpoint(svc),
		Chat:             ChatEndpoint(svc),
		ChatStream:       ChatStreamEndpoint(svc),
		History:          HistoryEndpoint(svc),
		ClearHistory:     ClearHistoryEndpoint(svc),
	}
}
