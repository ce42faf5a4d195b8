package middleware

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

var (
	ErrStreamingUnsupported = errors.New("streaming not supported")
	ErrInternal             = errors.New("internal server error")
)

type ErrorResponse struct {
	Error   string `json:"error" description:"Error message"`
	Code    int    `json:"code" description:"HTTP status code"`
	Details string `json:"details" description:"Additional error details"`
}

// HandleError writes err as an ErrorResponse with the given status.
func HandleError(resp *restful.Response, err error, status int) {
	body := ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Details: err.Error(),
	}
	if writeErr := resp.WriteHeaderAndJson(status, body, restful.MIME_JSON); writeErr != nil {
		log.Error().Err(writeErr).Int("status", status).Msg("Failed to write error response")
	}
}
