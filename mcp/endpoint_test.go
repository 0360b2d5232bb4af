package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/vector"
)

type stubService struct {
	added []string
}

func (s *stubService) Close() error                                         { return nil }
func (s *stubService) CreateCollection(ctx context.Context, n string) error { return nil }
func (s *stubService) DeleteCollection(ctx context.Context, n string) error { return nil }

func (s *stubService) ListCollections(ctx context.Context) ([]ragblade.CollectionInfo, error) {
	return []ragblade.CollectionInfo{
		{Name: "kb1", DocumentCount: 2},
	}, nil
}

func (s *stubService) GetCollection(ctx context.Context, n string) (ragblade.CollectionInfo, error) {
	return ragblade.CollectionInfo{Name: n}, nil
}

func (s *stubService) AddText(ctx context.Context, collection, text, source string) (int, error) {
	if collection == "missing" {
		return 0, vector.ErrCollectionNotFound
	}

	s.added = append(s.added, text)
	return 1, nil
}

func (s *stubService) ListDocuments(ctx context.Context, c string, l int) ([]ragblade.StoredDocument, error) {
	return nil, nil
}

func (s *stubService) Query(ctx context.Context, req ragblade.QueryRequest) (*ragblade.QueryResult, error) {
	return &ragblade.QueryResult{Query: req.Query, Answer: "The sky is blue."}, nil
}

func (s *stubService) Chat(ctx context.Context, req ragblade.QueryRequest) (*ragblade.QueryResult, error) {
	return s.Query(ctx, req)
}

func (s *stubService) ChatStream(ctx context.Context, req ragblade.QueryRequest) (<-chan ragblade.Event, error) {
	return nil, nil
}

func (s *stubService) History(ctx context.Context, c string) ([]ragblade.Turn, error) {
	return nil, nil
}

func (s *stubService) ClearHistory(ctx context.Context, c string) error { return nil }

func request(t *testing.T, method mcp.MCPMethod, params any) JSONRPCRequest {
	data, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}

	return JSONRPCRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      mcp.NewRequestId(1),
		Method:  method,
		Params:  data,
	}
}

func TestInitializeEndpoint(t *testing.T) {
	endpoint := InitializeEndpoint(&stubService{})

	msg := endpoint(context.Background(), request(t, mcp.MethodInitialize, mcp.InitializeParams{
		ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
	}))

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}

	result, ok := resp.Result.(*mcp.InitializeResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}

	assert.Equal(t, "ragblade", result.ServerInfo.Name)
	assert.Equal(t, mcp.LATEST_PROTOCOL_VERSION, result.ProtocolVersion)
	assert.NotNil(t, result.Capabilities.Tools)
}

func TestListToolsEndpoint(t *testing.T) {
	endpoint := ListToolsEndpoint(&stubService{})

	msg := endpoint(context.Background(), request(t, mcp.MethodToolsList, struct{}{}))

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}

	result, ok := resp.Result.(*mcp.ListToolsResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{"list_collections", "add_text", "query_knowledge_base"}, names)
}

func TestCallToolListCollections(t *testing.T) {
	endpoint := CallToolEndpoint(&stubService{})

	msg := endpoint(context.Background(), request(t, mcp.MethodToolsCall, mcp.CallToolParams{
		Name: "list_collections",
	}))

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}

	assert.Contains(t, text.Text, "kb1")
}

func TestCallToolAddText(t *testing.T) {
	svc := &stubService{}
	endpoint := CallToolEndpoint(svc)

	msg := endpoint(context.Background(), request(t, mcp.MethodToolsCall, mcp.CallToolParams{
		Name: "add_text",
		Arguments: map[string]any{
			"collection": "kb1",
			"text":       "The sky is blue.",
			"source":     "notes.txt",
		},
	}))

	_, ok := msg.(mcp.JSONRPCResponse)
	assert.True(t, ok)
	assert.Equal(t, []string{"The sky is blue."}, svc.added)
}

func TestCallToolQueryKnowledgeBase(t *testing.T) {
	endpoint := CallToolEndpoint(&stubService{})

	msg := endpoint(context.Background(), request(t, mcp.MethodToolsCall, mcp.CallToolParams{
		Name: "query_knowledge_base",
		Arguments: map[string]any{
			"collection": "kb1",
			"query":      "What color is the sky?",
			"n_results":  float64(3),
		},
	}))

	resp, ok := msg.(mcp.JSONRPCResponse)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}

	result, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}

	text := result.Content[0].(mcp.TextContent)
	assert.Contains(t, text.Text, "The sky is blue.")
}

func TestCallToolFailure(t *testing.T) {
	endpoint := CallToolEndpoint(&stubService{})

	msg := endpoint(context.Background(), request(t, mcp.MethodToolsCall, mcp.CallToolParams{
		Name: "add_text",
		Arguments: map[string]any{
			"collection": "missing",
			"text":       "anything",
		},
	}))

	rpcErr, ok := msg.(mcp.JSONRPCError)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}

	assert.Equal(t, mcp.INTERNAL_ERROR, rpcErr.Error.Code)
}

func TestCallToolUnknown(t *testing.T) {
	endpoint := CallToolEndpoint(&stubService{})

	msg := endpoint(context.Background(), request(t, mcp.MethodToolsCall, mcp.CallToolParams{
		Name: "drop_tables",
	}))

	rpcErr, ok := msg.(mcp.JSONRPCError)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}

	assert.Equal(t, mcp.METHOD_NOT_FOUND, rpcErr.Error.Code)
}
