package llm

type Message struct {
	Role    string
	Content string
}

type Request struct {
	System      string
	Prompt      string
	History     []Message
	MaxTokens   int
	Temperature float64
}

type Response struct {
	Content    string
	StopReason string
}
