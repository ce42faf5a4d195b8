package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/auth"
	"github.com/PoLsss/ML-lightrag-core/internal/engine"
	"github.com/rs/zerolog"
)

type Config struct {
	BaseURL             string
	APIKey              string
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
}

// StatusError is returned when the upstream server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Client is an engine backed by another LightRAG server's query API.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zerolog.Logger
}

func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 10
	}

	// Streamed answers can run longer than Timeout, so it only bounds the
	// wait for response headers here.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Transport: transport},
		logger:     logger,
	}
}

type upstreamRequest struct {
	Query string `json:"query"`
	engine.QueryParam
	IncludeChunkContent bool `json:"include_chunk_content"`
}

type wireReference struct {
	ReferenceID string   `json:"reference_id"`
	FilePath    string   `json:"file_path"`
	Content     []string `json:"content"`
}

type packet struct {
	Response    *string               `json:"response"`
	References  []wireReference       `json:"references"`
	ContextData *engine.RetrievalData `json:"context_data"`
	Error       *string               `json:"error"`
}

// QueryLLM always reads the upstream stream endpoint. A first packet that
// already carries the response is a complete answer; otherwise the remaining
// packets become the increments.
func (c *Client) QueryLLM(ctx context.Context, query string, param engine.QueryParam) (*engine.LLMResult, error) {
	resp, err := c.post(ctx, "/query/stream", query, param)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(resp.Body)

	var first packet
	if err := decoder.Decode(&first); err != nil {
		resp.Body.Close()
		if errors.Is(err, io.EOF) {
			return &engine.LLMResult{Answer: engine.Immediate{}}, nil
		}
		return nil, fmt.Errorf("failed to read upstream stream: %w", err)
	}
	if first.Error != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("upstream error: %s", *first.Error)
	}

	data := first.retrievalData()
	if first.Response != nil {
		resp.Body.Close()
		return &engine.LLMResult{Answer: engine.Immediate{Text: *first.Response}, Data: data}, nil
	}

	return &engine.LLMResult{
		Answer: engine.Incremental{Chunks: c.increments(resp.Body, decoder)},
		Data:   data,
	}, nil
}

// increments owns body and closes it when iteration ends.
func (c *Client) increments(body io.ReadCloser, decoder *json.Decoder) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer body.Close()
		for {
			var p packet
			err := decoder.Decode(&p)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", fmt.Errorf("failed to read upstream stream: %w", err))
				return
			}
			if p.Error != nil {
				yield("", fmt.Errorf("upstream error: %s", *p.Error))
				return
			}
			if p.Response == nil {
				continue
			}
			if !yield(*p.Response, nil) {
				c.logger.Debug().Msg("Upstream stream abandoned by consumer")
				return
			}
		}
	}
}

// QueryData reads the upstream data endpoint. Anything other than a JSON
// object is reported as engine.ErrUnexpectedShape.
func (c *Client) QueryData(ctx context.Context, query string, param engine.QueryParam) (*engine.DataResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, "/query/data", query, param)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, engine.ErrUnexpectedShape
	}

	var result engine.DataResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrUnexpectedShape, err)
	}

	return &result, nil
}

func (c *Client) post(ctx context.Context, path, query string, param engine.QueryParam) (*http.Response, error) {
	if param.Mode == "" {
		param.Mode = engine.DefaultMode
	}
	if param.HLKeywords == nil {
		param.HLKeywords = []string{}
	}
	if param.LLKeywords == nil {
		param.LLKeywords = []string{}
	}
	// References and chunk text are always requested so the local layer can
	// decide what to return.
	param.IncludeReferences = true

	payload, err := json.Marshal(upstreamRequest{Query: query, QueryParam: param, IncludeChunkContent: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(auth.APIKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Upstream responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	return resp, nil
}

// retrievalData prefers the upstream's raw context and otherwise rebuilds
// references and chunks from the enriched reference list.
func (p packet) retrievalData() engine.RetrievalData {
	if p.ContextData != nil && !p.ContextData.IsZero() {
		return *p.ContextData
	}
	if p.References == nil {
		return engine.RetrievalData{}
	}

	data := engine.RetrievalData{References: make([]engine.Reference, 0, len(p.References))}
	for _, ref := range p.References {
		data.References = append(data.References, engine.Reference{ReferenceID: ref.ReferenceID, FilePath: ref.FilePath})
		for _, content := range ref.Content {
			data.Chunks = append(data.Chunks, engine.Chunk{
				ReferenceID: ref.ReferenceID,
				Content:     content,
				FilePath:    ref.FilePath,
			})
		}
	}
	return data
}
