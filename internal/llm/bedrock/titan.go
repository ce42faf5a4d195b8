package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

type titanEmbeddingRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls the Titan embedding model once per text; the model has no
// batch input.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body, err := json.Marshal(titanEmbeddingRequest{
			InputText:  text,
			Dimensions: c.dimensions,
			Normalize:  true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
		}

		output, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.embeddingModelID),
			Body:        body,
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}

		var response titanEmbeddingResponse
		if err := json.Unmarshal(output.Body, &response); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding response: %w", err)
		}
		if len(response.Embedding) == 0 {
			return nil, fmt.Errorf("no embedding returned for input %d", len(vectors))
		}
		vectors = append(vectors, response.Embedding)
	}
	return vectors, nil
}
