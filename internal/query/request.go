package query

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/PoLsss/ML-lightrag-core/internal/engine"
)

// MinQueryLength is the minimum number of characters a query must have after
// surrounding whitespace is removed.
const MinQueryLength = 3

// ValidationError reports a single rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// QueryRequest is the body accepted by /query, /query/stream and /query/data.
// Optional fields are pointers so that an unset field can be told apart from
// one set to its zero value.
type QueryRequest struct {
	Query               string           `json:"query" description:"The query text (at least 3 characters)"`
	Mode                *engine.Mode     `json:"mode,omitempty" description:"Query mode: local, global, hybrid, naive, mix or bypass (default: mix)"`
	OnlyNeedContext     *bool            `json:"only_need_context,omitempty" description:"Only return the retrieved context without generating a response"`
	OnlyNeedPrompt      *bool            `json:"only_need_prompt,omitempty" description:"Only return the generated prompt without producing a response"`
	ResponseType        *string          `json:"response_type,omitempty" description:"Response format, e.g. 'Multiple Paragraphs' or 'Bullet Points'"`
	TopK                *int             `json:"top_k,omitempty" description:"Number of top entities or relationships to retrieve"`
	ChunkTopK           *int             `json:"chunk_top_k,omitempty" description:"Number of text chunks to retrieve"`
	MaxEntityTokens     *int             `json:"max_entity_tokens,omitempty" description:"Token budget for entity context"`
	MaxRelationTokens   *int             `json:"max_relation_tokens,omitempty" description:"Token budget for relationship context"`
	MaxTotalTokens      *int             `json:"max_total_tokens,omitempty" description:"Total token budget for the query context"`
	HLKeywords          []string         `json:"hl_keywords,omitempty" description:"High-level keywords; empty lets the engine extract them"`
	LLKeywords          []string         `json:"ll_keywords,omitempty" description:"Low-level keywords; empty lets the engine extract them"`
	ConversationHistory []map[string]any `json:"conversation_history,omitempty" description:"Past messages, each with a 'role' and 'content'"`
	UserPrompt          *string          `json:"user_prompt,omitempty" description:"Overrides the default prompt template"`
	EnableRerank        *bool            `json:"enable_rerank,omitempty" description:"Rerank retrieved chunks"`
	IncludeReferences   *bool            `json:"include_references,omitempty" description:"Include the reference list (default: true)"`
	IncludeChunkContent *bool            `json:"include_chunk_content,omitempty" description:"Include chunk text in references (default: false)"`
	Stream              *bool            `json:"stream,omitempty" description:"Stream the answer; only used by /query/stream (default: true)"`
}

// Normalize trims the query and fills in defaults that do not depend on
// presence tracking.
func (r *QueryRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	if r.Mode == nil {
		mode := engine.DefaultMode
		r.Mode = &mode
	}
	if r.HLKeywords == nil {
		r.HLKeywords = []string{}
	}
	if r.LLKeywords == nil {
		r.LLKeywords = []string{}
	}
}

// Validate checks every field and returns all failures joined together, each
// one a *ValidationError.
func (r *QueryRequest) Validate() error {
	var errs []error

	if n := utf8.RuneCountInString(strings.TrimSpace(r.Query)); n < MinQueryLength {
		errs = append(errs, &ValidationError{
			Field:  "query",
			Reason: fmt.Sprintf("must be at least %d characters after trimming, got %d", MinQueryLength, n),
		})
	}

	if r.Mode != nil && !r.Mode.Valid() {
		errs = append(errs, &ValidationError{
			Field:  "mode",
			Reason: fmt.Sprintf("unknown mode %q", *r.Mode),
		})
	}

	if r.ResponseType != nil && strings.TrimSpace(*r.ResponseType) == "" {
		errs = append(errs, &ValidationError{Field: "response_type", Reason: "must not be empty"})
	}

	budgets := []struct {
		name  string
		value *int
	}{
		{"top_k", r.TopK},
		{"chunk_top_k", r.ChunkTopK},
		{"max_entity_tokens", r.MaxEntityTokens},
		{"max_relation_tokens", r.MaxRelationTokens},
		{"max_total_tokens", r.MaxTotalTokens},
	}
	for _, b := range budgets {
		if b.value != nil && *b.value < 1 {
			errs = append(errs, &ValidationError{
				Field:  b.name,
				Reason: fmt.Sprintf("must be greater than or equal to 1, got %d", *b.value),
			})
		}
	}

	for i, msg := range r.ConversationHistory {
		field := fmt.Sprintf("conversation_history[%d].role", i)
		raw, ok := msg["role"]
		if !ok {
			errs = append(errs, &ValidationError{Field: field, Reason: "each message must have a 'role' key"})
			continue
		}
		role, ok := raw.(string)
		if !ok || strings.TrimSpace(role) == "" {
			errs = append(errs, &ValidationError{Field: field, Reason: "each message 'role' must be a non-empty string"})
		}
	}

	return errors.Join(errs...)
}

// ResolvedMode is the requested mode, mix when unset.
func (r *QueryRequest) ResolvedMode() engine.Mode {
	if r.Mode == nil {
		return engine.DefaultMode
	}
	return *r.Mode
}

// StreamPreference is the caller's stream flag, true when unset.
func (r *QueryRequest) StreamPreference() bool {
	return engine.BoolValue(r.Stream, true)
}

// WantReferences reports whether the reference list should be returned.
func (r *QueryRequest) WantReferences() bool {
	return engine.BoolValue(r.IncludeReferences, true)
}

// WantChunkContent reports whether references should carry chunk text. It only
// applies when references are returned at all.
func (r *QueryRequest) WantChunkContent() bool {
	return r.WantReferences() && engine.BoolValue(r.IncludeChunkContent, false)
}

// ToQueryParams maps every field the caller set onto the engine parameters.
// The query text and include_chunk_content stay in the API layer.
func (r *QueryRequest) ToQueryParams(isStream bool) engine.QueryParam {
	param := engine.QueryParam{
		Mode:              r.ResolvedMode(),
		OnlyNeedContext:   clonePtr(r.OnlyNeedContext),
		OnlyNeedPrompt:    clonePtr(r.OnlyNeedPrompt),
		ResponseType:      clonePtr(r.ResponseType),
		TopK:              clonePtr(r.TopK),
		ChunkTopK:         clonePtr(r.ChunkTopK),
		MaxEntityTokens:   clonePtr(r.MaxEntityTokens),
		MaxRelationTokens: clonePtr(r.MaxRelationTokens),
		MaxTotalTokens:    clonePtr(r.MaxTotalTokens),
		HLKeywords:        cloneKeywords(r.HLKeywords),
		LLKeywords:        cloneKeywords(r.LLKeywords),
		UserPrompt:        clonePtr(r.UserPrompt),
		EnableRerank:      clonePtr(r.EnableRerank),
		IncludeReferences: r.WantReferences(),
		Stream:            isStream,
	}

	if r.ConversationHistory != nil {
		param.ConversationHistory = make([]engine.Message, 0, len(r.ConversationHistory))
		for _, msg := range r.ConversationHistory {
			param.ConversationHistory = append(param.ConversationHistory, engine.Message(maps.Clone(msg)))
		}
	}

	return param
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneKeywords(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
