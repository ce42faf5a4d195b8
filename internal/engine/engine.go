package engine

import (
	"context"
	"errors"
)

//go:generate mockgen -source=engine.go -destination=mocks/mock_engine.go -package=mocks

// ErrUnexpectedShape is returned by QueryData when the engine answered with
// something other than a structured result object.
var ErrUnexpectedShape = errors.New("engine returned an unexpected result shape")

// Engine is the retrieval/generation backend the query API sits in front of.
type Engine interface {
	// QueryLLM retrieves context for the query and generates an answer.
	QueryLLM(ctx context.Context, query string, param QueryParam) (*LLMResult, error)
	// QueryData retrieves context for the query without generating an answer.
	QueryData(ctx context.Context, query string, param QueryParam) (*DataResult, error)
}
