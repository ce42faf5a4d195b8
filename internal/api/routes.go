package api

import (
	"github.com/PoLsss/ML-lightrag-core/internal/api/middleware"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
)

// RegisterRoutes adds the query API to container. authFilter guards every
// route except the health check; pass nil to leave them open.
func RegisterRoutes(container *restful.Container, handler *Handler, authFilter restful.FilterFunction) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	gated := func(rb *restful.RouteBuilder) *restful.RouteBuilder {
		if authFilter != nil {
			rb.Filter(authFilter)
		}
		return rb.Returns(401, "Unauthorized", middleware.ErrorResponse{})
	}

	// Health endpoint
	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(gated(ws.POST("/query").
			To(handler.Query).
			Doc("Answer a query in a single response").
			Metadata(restfulspec.KeyOpenAPITags, []string{"query"}).
			Reads(query.QueryRequest{}).
			Writes(query.QueryResponse{}).
			Returns(200, "OK", query.QueryResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(422, "Unprocessable Entity", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{})))

	ws.
		Route(gated(ws.POST("/query/stream").
			To(handler.QueryStream).
			Produces(MIMENDJSON, restful.MIME_JSON).
			Doc("Stream the answer as newline-delimited JSON").
			Metadata(restfulspec.KeyOpenAPITags, []string{"query"}).
			Reads(query.QueryRequest{}).
			Returns(200, "OK", nil).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(422, "Unprocessable Entity", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{})))

	ws.
		Route(gated(ws.POST("/query/data").
			To(handler.QueryData).
			Doc("Return retrieval data without generating an answer").
			Metadata(restfulspec.KeyOpenAPITags, []string{"query"}).
			Reads(query.QueryRequest{}).
			Writes(query.QueryDataResponse{}).
			Returns(200, "OK", query.QueryDataResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(422, "Unprocessable Entity", middleware.ErrorResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{})))

	// Admin: Clear cache endpoint
	ws.
		Route(gated(ws.POST("/admin/cache/clear").
			To(handler.ClearCache).
			Consumes(restful.MIME_JSON, "*/*").
			Doc("Clear the LLM response cache").
			Metadata(restfulspec.KeyOpenAPITags, []string{"admin"}).
			Writes(CacheClearResponse{}).
			Returns(200, "OK", CacheClearResponse{}).
			Returns(500, "Internal Server Error", middleware.ErrorResponse{})))

	container.Add(ws)
}
