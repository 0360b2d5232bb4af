package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/kit/endpoint"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/stream"
	"github.com/flarexio/ragblade/vector"
)

func statusFromError(err error) int {
	switch {
	case errors.Is(err, vector.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, vector.ErrCollectionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ragblade.ErrInvalidCollectionName),
		errors.Is(err, ragblade.ErrEmptyQuery),
		errors.Is(err, ragblade.ErrEmptyText):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, err error) {
	c.String(statusFromError(err), err.Error())
	c.Error(err)
	c.Abort()
}

func CreateCollectionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.CreateCollectionRequest
		if err := c.ShouldBind(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		_, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"name":    req.Name,
		})
	}
}

func DeleteCollectionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		ctx := c.Request.Context()
		_, err := endpoint(ctx, name)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
		})
	}
}

func ListCollectionsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		resp, err := endpoint(ctx, nil)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func GetCollectionHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, name)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func AddTextHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.AddTextRequest
		if err := c.ShouldBind(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		req.Collection = c.Param("name")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

func ListDocumentsHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))

		req := ragblade.ListDocumentsRequest{
			Collection: c.Param("name"),
			Limit:      limit,
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		docs, _ := resp.([]ragblade.StoredDocument)

		c.JSON(http.StatusOK, gin.H{
			"documents": docs,
			"count":     len(docs),
		})
	}
}

func QueryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, &resp)
	}
}

// ChatStreamHandler answers a query as a server-sent event stream. Any
// failure after headers are written is surfaced as a terminal error
// event; the encoder guarantees the stream never ends without one.
func ChatStreamHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ragblade.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			c.Error(err)
			c.Abort()
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		enc := stream.NewEncoder(c.Writer)

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, req)
		if err != nil {
			c.Error(err)
			enc.Encode(ragblade.Event{
				Type:    ragblade.EventError,
				Content: err.Error(),
			})
			return
		}

		events, ok := resp.(<-chan ragblade.Event)
		if !ok {
			enc.Finish()
			return
		}

		defer enc.Finish()

		for event := range events {
			if err := enc.Encode(event); err != nil {
				return
			}
		}
	}
}

func HistoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		ctx := c.Request.Context()
		resp, err := endpoint(ctx, name)
		if err != nil {
			abort(c, err)
			return
		}

		turns, _ := resp.([]ragblade.Turn)

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"collection":    name,
			"history":       turns,
			"message_count": len(turns),
		})
	}
}

func ClearHistoryHandler(endpoint endpoint.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		ctx := c.Request.Context()
		_, err := endpoint(ctx, name)
		if err != nil {
			abort(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
		})
	}
}
