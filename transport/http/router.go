package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragblade"

	mcpE "github.com/flarexio/ragblade/mcp"
)

func AddRouters(r *gin.Engine, endpoints ragblade.EndpointSet) {
	api := r.Group("/api")
	{
		api.GET("/collections", ListCollectionsHandler(endpoints.ListCollections))
		api.POST("/collections", CreateCollectionHandler(endpoints.CreateCollection))
		api.GET("/collections/:name", GetCollectionHandler(endpoints.GetCollection))
		api.DELETE("/collections/:name", DeleteCollectionHandler(endpoints.DeleteCollection))

		api.POST("/collections/:name/documents/text", AddTextHandler(endpoints.AddText))
		api.GET("/collections/:name/documents", ListDocumentsHandler(endpoints.ListDocuments))

		api.POST("/query", QueryHandler(endpoints.Query))
		api.POST("/chat", QueryHandler(endpoints.Chat))
		api.POST("/chat/stream", ChatStreamHandler(endpoints.ChatStream))

		api.GET("/collections/:name/history", HistoryHandler(endpoints.History))
		api.DELETE("/collections/:name/history", ClearHistoryHandler(endpoints.ClearHistory))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
