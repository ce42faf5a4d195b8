package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/rs/zerolog"
)

type Keywords struct {
	HighLevel []string `json:"high_level_keywords"`
	LowLevel  []string `json:"low_level_keywords"`
}

func (k Keywords) Empty() bool {
	return len(k.HighLevel) == 0 && len(k.LowLevel) == 0
}

// Extractor asks the LLM for high-level (themes) and low-level (entities)
// keywords of a query.
type Extractor struct {
	client      llm.Client
	maxTokens   int
	temperature float64
	logger      *zerolog.Logger
}

func NewExtractor(client llm.Client, maxTokens int, temperature float64, logger *zerolog.Logger) *Extractor {
	return &Extractor{
		client:      client,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

const extractionPrompt = `You are a keyword extraction assistant for a knowledge-graph retrieval system.

Given the user query and the recent conversation, list:
- high_level_keywords: overarching concepts or themes
- low_level_keywords: specific entities, names, terms or details

Conversation:
%s

Query: "%s"

Return ONLY a JSON object of the form
{"high_level_keywords": ["..."], "low_level_keywords": ["..."]}`

// Extract never fails: if the LLM call or its output is unusable, the query
// itself becomes the only keyword of both kinds.
func (e *Extractor) Extract(ctx context.Context, query string, history []llm.Message) Keywords {
	fallback := Keywords{HighLevel: []string{query}, LowLevel: []string{query}}

	response, err := e.client.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(extractionPrompt, formatHistory(history), query),
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to extract keywords")
		return fallback
	}

	kw, err := Parse(response.Content)
	if err != nil || kw.Empty() {
		e.logger.Warn().Err(err).Str("content", response.Content).Msg("Unusable keyword extraction output")
		return fallback
	}

	e.logger.Debug().
		Strs("high_level", kw.HighLevel).
		Strs("low_level", kw.LowLevel).
		Msg("Keywords extracted")

	return kw
}

// Parse reads the first JSON object in content, tolerating code fences and
// prose around it.
func Parse(content string) (Keywords, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Keywords{}, fmt.Errorf("no JSON object in keyword response")
	}

	var kw Keywords
	if err := json.Unmarshal([]byte(content[start:end+1]), &kw); err != nil {
		return Keywords{}, fmt.Errorf("invalid keyword JSON: %w", err)
	}
	kw.HighLevel = clean(kw.HighLevel)
	kw.LowLevel = clean(kw.LowLevel)
	return kw, nil
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func formatHistory(history []llm.Message) string {
	if len(history) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}
