package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	mcpE "github.com/flarexio/ragblade/mcp"
)

// MCPStreamableHandler dispatches streamable-HTTP JSON-RPC requests to
// the registered MCP endpoints. A body that does not parse is a
// protocol error; a parsed request for an unregistered method is
// method-not-found.
func MCPStreamableHandler(endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) gin.HandlerFunc {
	log := zap.L().With(
		zap.String("transport", "mcp_streamable"),
	)

	return func(c *gin.Context) {
		var req mcpE.JSONRPCRequest
		if err := c.ShouldBind(&req); err != nil {
			c.Error(err)
			log.Warn("malformed request", zap.Error(err))

			resp := mcpE.ErrorResponse(req.ID, mcp.PARSE_ERROR, err.Error())
			c.JSON(http.StatusBadRequest, &resp)
			return
		}

		endpoint, ok := endpoints[req.Method]
		if !ok {
			log.Warn("unknown method", zap.String("method", string(req.Method)))

			resp := mcpE.ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND,
				"method not found: "+string(req.Method))
			c.JSON(http.StatusNotFound, &resp)
			return
		}

		ctx := c.Request.Context()
		resp := endpoint(ctx, req)

		c.JSON(http.StatusOK, &resp)
	}
}
