package rag

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/PoLsss/ML-lightrag-core/internal/cache"
	"github.com/PoLsss/ML-lightrag-core/internal/config"
	"github.com/PoLsss/ML-lightrag-core/internal/database"
	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/PoLsss/ML-lightrag-core/internal/keywords"
	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/rs/zerolog"
	"github.com/tiktoken-go/tokenizer"
)

// FailResponse is the answer given when retrieval found nothing to ground on.
const FailResponse = "Sorry, I'm not able to provide an answer to that question.[no-context]"

// Store is the retrieval backend. *database.DB satisfies it.
type Store interface {
	SearchEntities(ctx context.Context, embedding []float32, limit int) ([]database.Entity, error)
	SearchRelations(ctx context.Context, embedding []float32, limit int) ([]database.Relation, error)
	SearchChunks(ctx context.Context, embedding []float32, limit int) ([]database.Chunk, error)
	KeywordChunks(ctx context.Context, text string, limit int) ([]database.Chunk, error)
	ChunksByIDs(ctx context.Context, ids []string) ([]database.Chunk, error)
}

// Engine answers queries from a Postgres-backed knowledge graph.
type Engine struct {
	store     Store
	client    llm.Client
	embedder  llm.Embedder
	extractor *keywords.Extractor
	reranker  Reranker
	cache     cache.ResponseCache
	codec     tokenizer.Codec
	defaults  config.QueryDefaults
	logger    *zerolog.Logger
}

type Options struct {
	Defaults config.QueryDefaults
	// Reranker is optional; without one, enable_rerank only logs a warning.
	Reranker Reranker
	Cache    cache.ResponseCache
}

func New(store Store, client llm.Client, embedder llm.Embedder, opts Options, logger *zerolog.Logger) (*Engine, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	responseCache := opts.Cache
	if responseCache == nil {
		responseCache = cache.NopCache{}
	}

	kw := opts.Defaults.Keywords
	return &Engine{
		store:     store,
		client:    client,
		embedder:  embedder,
		extractor: keywords.NewExtractor(client, kw.MaxTokens, kw.Temperature, logger),
		reranker:  opts.Reranker,
		cache:     responseCache,
		codec:     codec,
		defaults:  opts.Defaults,
		logger:    logger,
	}, nil
}

func (e *Engine) QueryLLM(ctx context.Context, query string, param engine.QueryParam) (*engine.LLMResult, error) {
	s := e.resolve(param)
	history := toLLMHistory(param.ConversationHistory)

	if s.mode == engine.ModeBypass {
		answer, err := e.generate(ctx, s, llm.Request{Prompt: query, History: history})
		if err != nil {
			return nil, err
		}
		return &engine.LLMResult{Answer: answer}, nil
	}

	kw := e.keywordsFor(ctx, query, s.mode, param, history)
	built, err := e.build(ctx, query, kw, s)
	if err != nil {
		return nil, err
	}

	if built.empty() {
		e.logger.Info().Str("mode", string(s.mode)).Msg("No context retrieved")
		return &engine.LLMResult{Answer: engine.Immediate{Text: FailResponse}, Data: built.data}, nil
	}
	if s.onlyContext {
		return &engine.LLMResult{Answer: engine.Immediate{Text: built.text}, Data: built.data}, nil
	}

	system := systemPrompt(built.text, s.responseType, s.userPrompt)
	if s.onlyPrompt {
		return &engine.LLMResult{Answer: engine.Immediate{Text: fullPrompt(system, history, query)}, Data: built.data}, nil
	}

	answer, err := e.generate(ctx, s, llm.Request{System: system, Prompt: query, History: history})
	if err != nil {
		return nil, err
	}

	return &engine.LLMResult{Answer: answer, Data: built.data}, nil
}

func (e *Engine) QueryData(ctx context.Context, query string, param engine.QueryParam) (*engine.DataResult, error) {
	s := e.resolve(param)

	var kw keywords.Keywords
	var built *builtContext
	if s.mode != engine.ModeBypass {
		kw = e.keywordsFor(ctx, query, s.mode, param, toLLMHistory(param.ConversationHistory))
		var err error
		built, err = e.build(ctx, query, kw, s)
		if err != nil {
			return nil, err
		}
	} else {
		built = &builtContext{}
	}

	return &engine.DataResult{
		Status:  "success",
		Message: "Query executed successfully",
		Data:    built.data,
		Metadata: map[string]any{
			"query_mode": string(s.mode),
			"keywords": map[string]any{
				"high_level": nonNil(kw.HighLevel),
				"low_level":  nonNil(kw.LowLevel),
			},
			"processing_info": built.info.toMap(),
		},
	}, nil
}

func (e *Engine) keywordsFor(ctx context.Context, query string, mode engine.Mode, param engine.QueryParam, history []llm.Message) keywords.Keywords {
	if param.HasKeywords() {
		return keywords.Keywords{HighLevel: param.HLKeywords, LowLevel: param.LLKeywords}
	}
	if mode == engine.ModeNaive || mode == engine.ModeBypass {
		return keywords.Keywords{}
	}
	return e.extractor.Extract(ctx, query, history)
}

// generate runs the completion. Streaming requests yield an incremental answer
// unless the cache already holds the full text.
func (e *Engine) generate(ctx context.Context, s settings, request llm.Request) (engine.Answer, error) {
	request.MaxTokens = e.defaults.LLM.MaxTokens
	request.Temperature = e.defaults.LLM.Temperature

	key := cacheKey(e.client.Name(), s.mode, request)
	if cached, ok, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn().Err(err).Msg("Response cache lookup failed")
	} else if ok {
		e.logger.Debug().Str("mode", string(s.mode)).Msg("Response served from cache")
		return engine.Immediate{Text: cached}, nil
	}

	if !s.stream {
		response, err := e.client.Complete(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("completion failed: %w", err)
		}
		e.remember(ctx, key, response.Content)
		return engine.Immediate{Text: response.Content}, nil
	}

	chunks, err := e.client.Stream(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("stream failed: %w", err)
	}
	return engine.Incremental{Chunks: e.teeToCache(ctx, key, chunks)}, nil
}

// teeToCache passes increments through and stores the full text once the
// stream finishes cleanly.
func (e *Engine) teeToCache(ctx context.Context, key string, chunks iter.Seq2[string, error]) iter.Seq2[string, error] {
	if !e.cache.Enabled() {
		return chunks
	}
	return func(yield func(string, error) bool) {
		var sb strings.Builder
		for chunk, err := range chunks {
			if err != nil {
				yield("", err)
				return
			}
			sb.WriteString(chunk)
			if !yield(chunk, nil) {
				return
			}
		}
		e.remember(context.WithoutCancel(ctx), key, sb.String())
	}
}

func (e *Engine) remember(ctx context.Context, key, value string) {
	if value == "" {
		return
	}
	if err := e.cache.Set(ctx, key, value); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to cache response")
	}
}

func cacheKey(provider string, mode engine.Mode, request llm.Request) string {
	parts := []string{provider, string(mode), request.System, request.Prompt}
	for _, m := range request.History {
		parts = append(parts, m.Role, m.Content)
	}
	return cache.Key(parts...)
}

func toLLMHistory(history []engine.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role, _ := m.Role()
		out = append(out, llm.Message{Role: role, Content: m.Content()})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var errEmbeddingCount = errors.New("embedder returned a different number of vectors than texts")
