package query

import (
	"context"
	"errors"
	"iter"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/rs/zerolog"
)

// EngineError wraps a failure raised by the engine or while shaping its
// result. Its message is the underlying error's message.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Service turns validated requests into engine calls and shapes the three
// response contracts.
type Service struct {
	engine engine.Engine
	logger *zerolog.Logger
}

func NewService(eng engine.Engine, logger *zerolog.Logger) *Service {
	return &Service{
		engine: eng,
		logger: logger,
	}
}

// Query answers in a single response. Incremental answers are drained before
// returning.
func (s *Service) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	param := req.ToQueryParams(false)

	result, err := s.engine.QueryLLM(ctx, req.Query, param)
	if err != nil {
		return QueryResponse{}, s.fail("query", param, err)
	}
	if result == nil {
		result = &engine.LLMResult{}
	}

	var text string
	if result.Answer != nil {
		text, err = engine.Collect(result.Answer)
		if err != nil {
			return QueryResponse{}, s.fail("query", param, err)
		}
	}
	if text == "" {
		text = NoContextResponse
	}

	return QueryResponse{
		Response:    text,
		References:  referencesFor(&req, result.Data),
		ContextData: result.Data,
	}, nil
}

// QueryStream starts an engine call and returns the packets to send. An error
// is only returned when the engine call itself fails; failures while reading
// an incremental answer become a final error packet.
func (s *Service) QueryStream(ctx context.Context, req QueryRequest) (iter.Seq[StreamPacket], error) {
	param := req.ToQueryParams(req.StreamPreference())

	result, err := s.engine.QueryLLM(ctx, req.Query, param)
	if err != nil {
		return nil, s.fail("query_stream", param, err)
	}
	if result == nil {
		result = &engine.LLMResult{}
	}

	refs := referencesFor(&req, result.Data)
	data := result.Data

	answer, ok := result.Answer.(engine.Incremental)
	if !ok {
		var text string
		if immediate, ok := result.Answer.(engine.Immediate); ok {
			text = immediate.Text
		}
		return func(yield func(StreamPacket) bool) {
			yield(completePacket(text, refs, data))
		}, nil
	}

	withRefs := req.WantReferences()
	return func(yield func(StreamPacket) bool) {
		if answer.Chunks == nil {
			yield(contextPacket(refs, data, withRefs))
			return
		}
		if !yield(contextPacket(refs, data, withRefs)) {
			// Ranging once and stopping lets the producer release its
			// upstream stream.
			for range answer.Chunks {
				break
			}
			return
		}
		for chunk, err := range answer.Chunks {
			if err != nil {
				s.logger.Error().Err(err).Str("mode", string(param.Mode)).Msg("Streaming error")
				yield(errorPacket(err))
				return
			}
			if chunk == "" {
				continue
			}
			if !yield(responsePacket(chunk)) {
				s.logger.Debug().Msg("Stream consumer stopped early")
				return
			}
		}
	}, nil
}

// QueryData returns the engine's retrieval data without an answer. A result
// of the wrong shape becomes the failure payload instead of an error.
func (s *Service) QueryData(ctx context.Context, req QueryRequest) (QueryDataResponse, error) {
	param := req.ToQueryParams(false)

	result, err := s.engine.QueryData(ctx, req.Query, param)
	if errors.Is(err, engine.ErrUnexpectedShape) || (err == nil && result == nil) {
		s.logger.Warn().Err(err).Str("mode", string(param.Mode)).Msg("Engine returned invalid data response")
		return InvalidDataResponse(), nil
	}
	if err != nil {
		return QueryDataResponse{}, s.fail("query_data", param, err)
	}

	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	return QueryDataResponse{
		Status:   result.Status,
		Message:  result.Message,
		Data:     result.Data,
		Metadata: metadata,
	}, nil
}

func (s *Service) fail(op string, param engine.QueryParam, err error) error {
	s.logger.Error().
		Err(err).
		Str("op", op).
		Str("mode", string(param.Mode)).
		Bool("stream", param.Stream).
		Msg("Engine query failed")
	return &EngineError{Op: op, Err: err}
}
