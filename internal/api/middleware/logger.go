package middleware

import (
	"strconv"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/metrics"
	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

// Logger logs every request once it completes and records request metrics.
func Logger(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()

	chain.ProcessFilter(req, resp)

	duration := time.Since(start)
	route := req.SelectedRoutePath()
	if route == "" {
		route = "unmatched"
	}

	metrics.HTTPRequestsTotal.WithLabelValues(route, req.Request.Method, strconv.Itoa(resp.StatusCode())).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())

	log.Info().
		Str("request_id", GetRequestID(req)).
		Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", resp.StatusCode()).
		Dur("duration", duration).
		Msg("Request processed")
}
