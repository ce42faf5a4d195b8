package rag

import (
	"fmt"
	"strings"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
)

const systemTemplate = `---Role---

You are a helpful assistant answering the user query from the Context below, which holds knowledge graph entities and relationships together with document chunks.

---Instructions---

1. Answer only from the Context. If it does not contain the answer, say so.
2. Use the conversation history to resolve follow-up questions.
3. Cite the documents you used with their reference ids, e.g. [1], and finish with a "References" section listing "[id] file path" for each cited document.
4. Answer in the same language as the user query.
5. Response format: %s%s

---Context---

%s`

func systemPrompt(contextText, responseType, userPrompt string) string {
	extra := ""
	if userPrompt != "" {
		extra = "\n6. Additional instructions: " + userPrompt
	}
	return fmt.Sprintf(systemTemplate, responseType, extra, contextText)
}

// fullPrompt renders everything the LLM would receive as one text.
func fullPrompt(system string, history []llm.Message, query string) string {
	var sb strings.Builder
	sb.WriteString(system)
	if len(history) > 0 {
		sb.WriteString("\n\n---Conversation History---\n\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
	}
	sb.WriteString("\n\n---User Query---\n\n")
	sb.WriteString(query)
	return sb.String()
}
