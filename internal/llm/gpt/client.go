package gpt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

type Client struct {
	client           *openai.Client
	modelID          string
	embeddingModelID string
	dimensions       int
}

// NewClient builds an OpenAI client. baseURL may point at any
// OpenAI-compatible server; empty means api.openai.com.
func NewClient(apiKey, baseURL, model, embeddingModel string, dimensions int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("OpenAI model ID is required")
	}
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client:           openai.NewClientWithConfig(cfg),
		modelID:          model,
		embeddingModelID: embeddingModel,
		dimensions:       dimensions,
	}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) chatRequest(request llm.Request, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(request.History)+2)
	if request.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: request.System})
	}
	for _, m := range request.History {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: request.Prompt})

	return openai.ChatCompletionRequest{
		Model:               c.modelID,
		Messages:            messages,
		MaxCompletionTokens: request.MaxTokens,
		Temperature:         float32(request.Temperature),
		Stream:              stream,
	}
}

func (c *Client) Complete(ctx context.Context, request llm.Request) (*llm.Response, error) {
	output, err := c.client.CreateChatCompletion(ctx, c.chatRequest(request, false))
	if err != nil {
		return nil, fmt.Errorf("unable to invoke gpt model: %w", err)
	}

	if len(output.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := output.Choices[0]
	return &llm.Response{
		Content:    choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}, nil
}

func (c *Client) Stream(ctx context.Context, request llm.Request) (iter.Seq2[string, error], error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.chatRequest(request, true))
	if err != nil {
		return nil, fmt.Errorf("unable to start gpt stream: %w", err)
	}

	return func(yield func(string, error) bool) {
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("stream error: %w", err))
				return
			}
			if len(response.Choices) == 0 {
				continue
			}
			text := response.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	generated, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(c.embeddingModelID),
		Input:      texts,
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(generated.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(generated.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range generated.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
