package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// Claude API request format (what Bedrock expects)
type claudeMessageRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Claude API response format (what Bedrock returns)
type claudeMessageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type claudeStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
	ContentBlock struct {
		Text string `json:"text"`
	} `json:"content_block"`
}

const anthropicVersion = "bedrock-2023-05-31"

func buildPayload(request llm.Request) ([]byte, error) {
	messages := make([]claudeMessage, 0, len(request.History)+1)
	for _, m := range request.History {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		messages = append(messages, claudeMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, claudeMessage{Role: "user", Content: request.Prompt})

	body, err := json.Marshal(claudeMessageRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        request.MaxTokens,
		Temperature:      request.Temperature,
		System:           request.System,
		Messages:         messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claude request: %w", err)
	}
	return body, nil
}

func (c *Client) Complete(ctx context.Context, request llm.Request) (*llm.Response, error) {
	body, err := buildPayload(request)
	if err != nil {
		return nil, err
	}

	output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model: %w", err)
	}

	var response claudeMessageResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bedrock response: %w", err)
	}

	var content string
	if len(response.Content) > 0 {
		content = response.Content[0].Text
	}

	return &llm.Response{
		Content:    content,
		StopReason: response.StopReason,
	}, nil
}

// Stream opens a response stream. The event stream is closed when the
// returned sequence finishes or the caller stops ranging over it.
func (c *Client) Stream(ctx context.Context, request llm.Request) (iter.Seq2[string, error], error) {
	body, err := buildPayload(request)
	if err != nil {
		return nil, err
	}

	output, err := c.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(c.modelID),
		Body:        body,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model stream: %w", err)
	}

	stream := output.GetStream()

	return func(yield func(string, error) bool) {
		defer stream.Close()

		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}

			var ev claudeStreamEvent
			if err := json.Unmarshal(chunk.Value.Bytes, &ev); err != nil {
				// skip events we can't parse
				continue
			}

			text := ev.Delta.Text
			if text == "" {
				text = ev.ContentBlock.Text
			}
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield("", fmt.Errorf("stream error: %w", err))
		}
	}, nil
}
