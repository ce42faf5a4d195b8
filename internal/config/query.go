package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultQueryDefaultsPath = "configs/query.yaml"

// QueryDefaults holds the values the native engine uses for options a caller
// leaves unset.
type QueryDefaults struct {
	Query    RetrievalDefaults `yaml:"query"`
	LLM      ModelParams       `yaml:"llm"`
	Keywords ModelParams       `yaml:"keywords"`
}

type RetrievalDefaults struct {
	TopK              int    `yaml:"top_k"`
	ChunkTopK         int    `yaml:"chunk_top_k"`
	MaxEntityTokens   int    `yaml:"max_entity_tokens"`
	MaxRelationTokens int    `yaml:"max_relation_tokens"`
	MaxTotalTokens    int    `yaml:"max_total_tokens"`
	ResponseType      string `yaml:"response_type"`
	EnableRerank      *bool  `yaml:"enable_rerank"`
	// RRFK is the rank constant used when fusing semantic and keyword chunk
	// rankings.
	RRFK int `yaml:"rrf_k"`
}

type ModelParams struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// LoadQueryDefaults reads QUERY_DEFAULTS_PATH, or configs/query.yaml when
// unset. A missing default file is not an error; a missing explicit one is.
func LoadQueryDefaults() (*QueryDefaults, error) {
	path := os.Getenv("QUERY_DEFAULTS_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultQueryDefaultsPath
	}

	var cfg QueryDefaults

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read query defaults: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in defaults without reading any file.
func Default() *QueryDefaults {
	var cfg QueryDefaults
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *QueryDefaults) {
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 60
	}
	if cfg.Query.ChunkTopK == 0 {
		cfg.Query.ChunkTopK = 20
	}
	if cfg.Query.MaxEntityTokens == 0 {
		cfg.Query.MaxEntityTokens = 6000
	}
	if cfg.Query.MaxRelationTokens == 0 {
		cfg.Query.MaxRelationTokens = 8000
	}
	if cfg.Query.MaxTotalTokens == 0 {
		cfg.Query.MaxTotalTokens = 30000
	}
	if cfg.Query.ResponseType == "" {
		cfg.Query.ResponseType = "Multiple Paragraphs"
	}
	if cfg.Query.EnableRerank == nil {
		enabled := true
		cfg.Query.EnableRerank = &enabled
	}
	if cfg.Query.RRFK == 0 {
		cfg.Query.RRFK = 60
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.Keywords.MaxTokens == 0 {
		cfg.Keywords.MaxTokens = 256
	}
}

func (c *QueryDefaults) Validate() error {
	var errs []error
	positive := map[string]int{
		"query.top_k":               c.Query.TopK,
		"query.chunk_top_k":         c.Query.ChunkTopK,
		"query.max_entity_tokens":   c.Query.MaxEntityTokens,
		"query.max_relation_tokens": c.Query.MaxRelationTokens,
		"query.max_total_tokens":    c.Query.MaxTotalTokens,
		"query.rrf_k":               c.Query.RRFK,
		"llm.max_tokens":            c.LLM.MaxTokens,
		"keywords.max_tokens":       c.Keywords.MaxTokens,
	}
	for name, v := range positive {
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", name, v))
		}
	}
	if c.Query.MaxEntityTokens+c.Query.MaxRelationTokens > c.Query.MaxTotalTokens {
		errs = append(errs, fmt.Errorf("query.max_entity_tokens + query.max_relation_tokens (%d) exceeds query.max_total_tokens (%d)",
			c.Query.MaxEntityTokens+c.Query.MaxRelationTokens, c.Query.MaxTotalTokens))
	}
	for name, v := range map[string]float64{"llm.temperature": c.LLM.Temperature, "keywords.temperature": c.Keywords.Temperature} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be between 0.0 and 1.0, got %.2f", name, v))
		}
	}
	return errors.Join(errs...)
}
