package middleware

import (
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
)

const (
	RequestIDHeader    = "X-Request-ID"
	requestIDAttribute = "request_id"
)

// RequestID reuses the caller's X-Request-ID or assigns a new one, and echoes
// it on the response.
func RequestID(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	id := req.HeaderParameter(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	req.SetAttribute(requestIDAttribute, id)
	resp.AddHeader(RequestIDHeader, id)
	chain.ProcessFilter(req, resp)
}

// GetRequestID returns the id assigned by RequestID, or "" outside of it.
func GetRequestID(req *restful.Request) string {
	id, _ := req.Attribute(requestIDAttribute).(string)
	return id
}
