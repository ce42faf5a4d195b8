package llm

import (
	"context"
	"iter"
)

//go:generate mockgen -source=client.go -destination=mocks/mock_client.go -package=mocks

// Client is a chat completion provider.
type Client interface {
	Complete(ctx context.Context, request Request) (*Response, error)
	// Stream starts a completion and returns its text increments. The call
	// itself fails if the provider rejects the request; later failures are
	// reported through the sequence.
	Stream(ctx context.Context, request Request) (iter.Seq2[string, error], error)
	Name() string
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
