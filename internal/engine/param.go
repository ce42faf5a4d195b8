package engine

import "strings"

// Message is one conversation history record. Only "role" is interpreted by
// the API layer; every other key is passed through untouched.
type Message map[string]any

func (m Message) Role() (string, bool) {
	v, ok := m["role"]
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

func (m Message) Content() string {
	content, _ := m["content"].(string)
	return content
}

// QueryParam is the engine-facing parameter set. Nil pointers mean the caller
// left the option unset and the engine falls back to its own default.
type QueryParam struct {
	Mode                Mode      `json:"mode"`
	OnlyNeedContext     *bool     `json:"only_need_context,omitempty"`
	OnlyNeedPrompt      *bool     `json:"only_need_prompt,omitempty"`
	ResponseType        *string   `json:"response_type,omitempty"`
	TopK                *int      `json:"top_k,omitempty"`
	ChunkTopK           *int      `json:"chunk_top_k,omitempty"`
	MaxEntityTokens     *int      `json:"max_entity_tokens,omitempty"`
	MaxRelationTokens   *int      `json:"max_relation_tokens,omitempty"`
	MaxTotalTokens      *int      `json:"max_total_tokens,omitempty"`
	HLKeywords          []string  `json:"hl_keywords"`
	LLKeywords          []string  `json:"ll_keywords"`
	ConversationHistory []Message `json:"conversation_history,omitempty"`
	UserPrompt          *string   `json:"user_prompt,omitempty"`
	EnableRerank        *bool     `json:"enable_rerank,omitempty"`
	IncludeReferences   bool      `json:"include_references"`
	Stream              bool      `json:"stream"`
}

// HasKeywords reports whether the caller supplied explicit keywords, which
// bypasses keyword extraction.
func (p QueryParam) HasKeywords() bool {
	return len(p.HLKeywords) > 0 || len(p.LLKeywords) > 0
}

func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func IntValue(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func StringValue(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return *p
}
