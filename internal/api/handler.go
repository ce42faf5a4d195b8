package api

import (
	"errors"
	"net/http"

	"github.com/PoLsss/ML-lightrag-core/internal/api/middleware"
	"github.com/PoLsss/ML-lightrag-core/internal/cache"
	"github.com/PoLsss/ML-lightrag-core/internal/metrics"
	"github.com/PoLsss/ML-lightrag-core/internal/query"
	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"
)

type Handler struct {
	service *query.Service
	cache   cache.ResponseCache
	info    Info
	logger  *zerolog.Logger
}

func NewHandler(service *query.Service, responseCache cache.ResponseCache, info Info, logger *zerolog.Logger) *Handler {
	if responseCache == nil {
		responseCache = cache.NopCache{}
	}
	return &Handler{
		service: service,
		cache:   responseCache,
		info:    info,
		logger:  logger,
	}
}

// Query handles POST /query
func (h *Handler) Query(req *restful.Request, resp *restful.Response) {
	queryRequest, ok := h.readRequest(req, resp)
	if !ok {
		return
	}

	h.logRequest(req, queryRequest).Msg("Process Query")

	queryResponse, err := h.service.Query(req.Request.Context(), queryRequest)
	if err != nil {
		h.handleServiceError(req, resp, err)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, queryResponse)
}

// QueryStream handles POST /query/stream
func (h *Handler) QueryStream(req *restful.Request, resp *restful.Response) {
	queryRequest, ok := h.readRequest(req, resp)
	if !ok {
		return
	}

	flusher, ok := resp.ResponseWriter.(http.Flusher)
	if !ok {
		middleware.HandleError(resp, middleware.ErrStreamingUnsupported, http.StatusInternalServerError)
		return
	}

	h.logRequest(req, queryRequest).Bool("stream", queryRequest.StreamPreference()).Msg("Process Query Stream")

	ctx := req.Request.Context()

	packets, err := h.service.QueryStream(ctx, queryRequest)
	if err != nil {
		h.handleServiceError(req, resp, err)
		return
	}

	written, err := NewNDJSONWriter(resp, flusher).Stream(ctx, packets)
	if err != nil {
		// Headers are already sent, so the client only sees a truncated stream.
		h.logger.Warn().
			Err(err).
			Str("request_id", middleware.GetRequestID(req)).
			Int("packets", written).
			Msg("Stream ended early")
		return
	}

	h.logger.Debug().Str("request_id", middleware.GetRequestID(req)).Int("packets", written).Msg("Stream complete")
}

// QueryData handles POST /query/data
func (h *Handler) QueryData(req *restful.Request, resp *restful.Response) {
	queryRequest, ok := h.readRequest(req, resp)
	if !ok {
		return
	}

	h.logRequest(req, queryRequest).Msg("Process Query Data")

	dataResponse, err := h.service.QueryData(req.Request.Context(), queryRequest)
	if err != nil {
		h.handleServiceError(req, resp, err)
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, dataResponse)
}

// Health handles GET /health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  h.info.Version,
		Engine:   h.info.Engine,
		AuthMode: h.info.AuthMode,
		Cache:    h.cache.Enabled(),
	})
}

// ClearCache handles POST /admin/cache/clear
func (h *Handler) ClearCache(req *restful.Request, resp *restful.Response) {
	if !h.cache.Enabled() {
		resp.WriteHeaderAndEntity(http.StatusOK, CacheClearResponse{Status: "disabled"})
		return
	}

	cleared, err := h.cache.Clear(req.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Int64("cleared", cleared).Msg("Failed to clear cache")
		middleware.HandleError(resp, err, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Int64("cleared", cleared).Msg("Cache cleared")
	resp.WriteHeaderAndEntity(http.StatusOK, CacheClearResponse{Status: "cleared", Cleared: cleared})
}

// readRequest decodes and validates the body. On failure the error response
// is already written.
func (h *Handler) readRequest(req *restful.Request, resp *restful.Response) (query.QueryRequest, bool) {
	var queryRequest query.QueryRequest

	if err := req.ReadEntity(&queryRequest); err != nil {
		h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(req)).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return query.QueryRequest{}, false
	}

	queryRequest.Normalize()
	if err := queryRequest.Validate(); err != nil {
		h.logger.Info().Err(err).Str("request_id", middleware.GetRequestID(req)).Msg("Rejected invalid request")
		middleware.HandleError(resp, err, StatusFor(err))
		return query.QueryRequest{}, false
	}

	return queryRequest, true
}

func (h *Handler) handleServiceError(req *restful.Request, resp *restful.Response, err error) {
	var engineErr *query.EngineError
	if errors.As(err, &engineErr) {
		metrics.EngineErrorsTotal.WithLabelValues(engineErr.Op).Inc()
	}
	h.logger.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(req)).
		Str("path", req.Request.URL.Path).
		Msg("Query failed")
	middleware.HandleError(resp, err, StatusFor(err))
}

func (h *Handler) logRequest(req *restful.Request, q query.QueryRequest) *zerolog.Event {
	return h.logger.Info().
		Str("request_id", middleware.GetRequestID(req)).
		Str("mode", string(q.ResolvedMode())).
		Int("query_len", len(q.Query)).
		Bool("include_references", q.WantReferences())
}

// StatusFor maps an error from request handling to its HTTP status.
func StatusFor(err error) int {
	var validationErr *query.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
