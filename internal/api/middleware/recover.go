package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

// RecoverPanic turns a panicking handler into a 500 response. If the handler
// had already started writing, the response is left as is.
func RecoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("request_id", GetRequestID(req)).
				Str("path", req.Request.URL.Path).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Recovered from panic")

			if resp.ContentLength() == 0 {
				HandleError(resp, ErrInternal, http.StatusInternalServerError)
			}
		}
	}()

	chain.ProcessFilter(req, resp)
}
