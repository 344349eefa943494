// Package embedding turns code chunks and query strings into fixed-dimension
// vectors via an external OpenAI-compatible inference endpoint.
package embedding

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Result is the outcome of an embedding call. Transient failures (timeouts,
// 5xx, disconnects) never block the pipeline: chunks persist without
// embeddings and queries fall back to sparse-only retrieval.
type Result struct {
	Success      bool
	Transient    bool
	ErrorCode    string
	ErrorMessage string
	Dims         int
	Vectors      [][]float64
}

// Vector returns the single vector of a query embedding result.
func (r Result) Vector() []float64 {
	if len(r.Vectors) == 0 {
		return nil
	}
	return r.Vectors[0]
}

// Config holds client settings.
type Config struct {
	ServiceURL string
	APIKey     string
	Model      string
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
}

// Client batches embedding requests against an external endpoint.
type Client struct {
	api        *openai.Client
	model      string
	batchSize  int
	timeout    time.Duration
	maxRetries int
	logger     *slog.Logger
}

// NewClient creates a Client. A nil logger falls back to slog.Default.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.ServiceURL != "" {
		apiCfg.BaseURL = cfg.ServiceURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		model:      cfg.Model,
		batchSize:  batchSize,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Model returns the embedding model identifier.
func (c *Client) Model() string { return c.model }

// TryGenerateChunks embeds the given texts, batched up to the configured
// batch size with a per-batch timeout. Vectors come back in input order,
// aligned 1:1 with the texts. The first failing batch aborts the call.
func (c *Client) TryGenerateChunks(ctx context.Context, texts []string) Result {
	if len(texts) == 0 {
		return Result{Success: true, Vectors: [][]float64{}}
	}

	vectors := make([][]float64, 0, len(texts))
	dims := 0

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		batch, res := c.embedBatch(ctx, texts[start:end])
		if !res.Success {
			return res
		}
		if dims == 0 && len(batch) > 0 {
			dims = len(batch[0])
		}
		vectors = append(vectors, batch...)
	}

	return Result{Success: true, Dims: dims, Vectors: vectors}
}

// TryGenerateQuery embeds a single query string.
func (c *Client) TryGenerateQuery(ctx context.Context, text string) Result {
	vectors, res := c.embedBatch(ctx, []string{text})
	if !res.Success {
		return res
	}
	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	return Result{Success: true, Dims: dims, Vectors: vectors}
}

// embedBatch issues one embedding request with the per-batch timeout,
// retrying transient failures a bounded number of times.
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, Result) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, failure("cancelled", err.Error(), true)
		}

		bctx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.api.CreateEmbeddings(bctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.model),
			Input: texts,
		})
		cancel()

		if err == nil {
			vectors := make([][]float64, len(resp.Data))
			for i, data := range resp.Data {
				vec := make([]float64, len(data.Embedding))
				for j, v := range data.Embedding {
					vec[j] = float64(v)
				}
				vectors[i] = vec
			}
			return vectors, Result{Success: true}
		}

		lastErr = err
		if !isTransient(err) {
			return nil, failure("request", err.Error(), false)
		}

		c.logger.Warn("embedding batch failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	return nil, failure("transient", lastErr.Error(), true)
}

func failure(code, message string, transient bool) Result {
	return Result{
		Success:      false,
		Transient:    transient,
		ErrorCode:    code,
		ErrorMessage: message,
	}
}

// isTransient classifies timeouts, 5xx responses, rate limits, and network
// errors as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}

	return false
}
