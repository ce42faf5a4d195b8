package rag

import "github.com/PoLsss/ML-lightrag-core/internal/engine"

// settings is a QueryParam with every unset option replaced by its default.
type settings struct {
	mode              engine.Mode
	topK              int
	chunkTopK         int
	maxEntityTokens   int
	maxRelationTokens int
	maxTotalTokens    int
	responseType      string
	userPrompt        string
	rerank            bool
	onlyContext       bool
	onlyPrompt        bool
	stream            bool
	rrfK              float64
}

func (e *Engine) resolve(param engine.QueryParam) settings {
	d := e.defaults.Query

	mode := param.Mode
	if mode == "" {
		mode = engine.DefaultMode
	}

	return settings{
		mode:              mode,
		topK:              engine.IntValue(param.TopK, d.TopK),
		chunkTopK:         engine.IntValue(param.ChunkTopK, d.ChunkTopK),
		maxEntityTokens:   engine.IntValue(param.MaxEntityTokens, d.MaxEntityTokens),
		maxRelationTokens: engine.IntValue(param.MaxRelationTokens, d.MaxRelationTokens),
		maxTotalTokens:    engine.IntValue(param.MaxTotalTokens, d.MaxTotalTokens),
		responseType:      engine.StringValue(param.ResponseType, d.ResponseType),
		userPrompt:        engine.StringValue(param.UserPrompt, ""),
		rerank:            engine.BoolValue(param.EnableRerank, engine.BoolValue(d.EnableRerank, true)),
		onlyContext:       engine.BoolValue(param.OnlyNeedContext, false),
		onlyPrompt:        engine.BoolValue(param.OnlyNeedPrompt, false),
		stream:            param.Stream,
		rrfK:              float64(d.RRFK),
	}
}
