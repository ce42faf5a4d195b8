package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const defaultEmbeddingModelID = "amazon.titan-embed-text-v2:0"

type Client struct {
	client           *bedrockruntime.Client
	modelID          string
	embeddingModelID string
	dimensions       int
}

func NewClient(ctx context.Context, region, modelID, embeddingModelID string, dimensions int) (*Client, error) {
	if modelID == "" {
		return nil, fmt.Errorf("bedrock model ID is required")
	}
	if embeddingModelID == "" {
		embeddingModelID = defaultEmbeddingModelID
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Client{
		client:           bedrockruntime.NewFromConfig(cfg),
		modelID:          modelID,
		embeddingModelID: embeddingModelID,
		dimensions:       dimensions,
	}, nil
}

func (c *Client) Name() string { return "bedrock" }
