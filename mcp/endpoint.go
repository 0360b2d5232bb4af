package mcp

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/ragblade"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorResponse builds the JSON-RPC error reply shared by every
// transport that dispatches MCP requests.
func ErrorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const MCPSERVER_INSTRUCTIONS string = `RAGBlade answers questions grounded in named document collections:

1. **Collections**: Each collection is an isolated corpus with its own vector index and conversation history
2. **Ingestion**: Extracted text is chunked, embedded and indexed per collection
3. **Retrieval**: Queries retrieve the most similar chunks and feed them to the generation model
4. **History**: Each collection keeps its own bounded conversation context

Available tools:
- list_collections: List every collection and its document count
- add_text: Chunk and index extracted text into a collection
- query_knowledge_base: Ask a question against one collection`

func InitializeEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    "ragblade",
				Version: "1.0.0",
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{}, // empty response
		}
	}
}

// Tools returns the static tool definitions exposed over MCP.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("list_collections",
			mcp.WithDescription("List every knowledge base collection with its document count"),
		),
		mcp.NewTool("add_text",
			mcp.WithDescription("Chunk, embed and index extracted text into a collection"),
			mcp.WithString("collection", mcp.Required(),
				mcp.Description("Target collection name"),
			),
			mcp.WithString("text", mcp.Required(),
				mcp.Description("Extracted plain text to index"),
			),
			mcp.WithString("source",
				mcp.Description("Provenance label for the text"),
			),
		),
		mcp.NewTool("query_knowledge_base",
			mcp.WithDescription("Answer a question grounded in one collection's documents"),
			mcp.WithString("collection", mcp.Required(),
				mcp.Description("Collection to query"),
			),
			mcp.WithString("query", mcp.Required(),
				mcp.Description("The question to answer"),
			),
			mcp.WithNumber("n_results",
				mcp.Description("Number of chunks to retrieve (default 5)"),
			),
		),
	}
}

func ListToolsEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: Tools(),
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc ragblade.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return ErrorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		args, _ := params.Arguments.(map[string]any)

		var (
			result any
			err    error
		)

		switch params.Name {
		case "list_collections":
			result, err = svc.ListCollections(ctx)

		case "add_text":
			var count int
			count, err = svc.AddText(ctx,
				stringArg(args, "collection"),
				stringArg(args, "text"),
				stringArg(args, "source"),
			)
			result = ragblade.AddTextResponse{ChunkCount: count}

		case "query_knowledge_base":
			result, err = svc.Chat(ctx, ragblade.QueryRequest{
				Collection: stringArg(args, "collection"),
				Query:      stringArg(args, "query"),
				NResults:   intArg(args, "n_results"),
			})

		default:
			return ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "unknown tool: "+params.Name)
		}

		if err != nil {
			return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		data, err := json.Marshal(result)
		if err != nil {
			return ErrorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  mcp.NewToolResultText(string(data)),
		}
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	n, _ := args[key].(float64)
	return int(n)
}
