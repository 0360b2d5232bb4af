package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ragblade"
)

func AddEndpoints(group micro.Group, endpoints ragblade.EndpointSet) {
	group.AddEndpoint("create_collection", CreateCollectionHandler(endpoints.CreateCollection))
	group.AddEndpoint("delete_collection", DeleteCollectionHandler(endpoints.DeleteCollection))
	group.AddEndpoint("list_collections", ListCollectionsHandler(endpoints.ListCollections))
	group.AddEndpoint("get_collection", GetCollectionHandler(endpoints.GetCollection))
	group.AddEndpoint("add_text", AddTextHandler(endpoints.AddText))
	group.AddEndpoint("list_documents", ListDocumentsHandler(endpoints.ListDocuments))
	group.AddEndpoint("query", QueryHandler(endpoints.Query))
	group.AddEndpoint("chat", QueryHandler(endpoints.Chat))
	group.AddEndpoint("history", HistoryHandler(endpoints.History))
	group.AddEndpoint("clear_history", ClearHistoryHandler(endpoints.ClearHistory))
}
