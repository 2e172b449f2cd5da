package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"docport/internal/domain"
)

// Settings configures an OpenAI-compatible embedding client.
type Settings struct {
	Provider          string
	Model             string
	BaseURL           string
	APIKeyEnv         string
	Dimension         int
	BatchSize         int
	Workers           int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Batches are
// dispatched by a bounded worker pool behind a shared token-bucket limiter,
// so concurrency never outruns the provider's rate limits.
type OpenAIEmbedder struct {
	provider  string
	model     string
	baseURL   string
	apiKey    string
	dimension int
	batchSize int
	workers   int
	limiter   *rate.Limiter
	client    *http.Client
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIEmbedder(s Settings) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(s.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", s.APIKeyEnv)
	}

	dimension := s.Dimension
	if dimension == 0 {
		dimension = 1536
		switch s.Model {
		case "text-embedding-3-small", "text-embedding-ada-002":
			dimension = 1536
		case "text-embedding-3-large":
			dimension = 3072
		}
	}

	provider := s.Provider
	if provider == "" {
		provider = "openai"
	}
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	rps := s.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIEmbedder{
		provider:  provider,
		model:     s.Model,
		baseURL:   baseURL,
		apiKey:    apiKey,
		dimension: dimension,
		batchSize: batchSize,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(rps), workers),
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type span struct{ start, end int }
	var spans []span
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		spans = append(spans, span{i, end})
	}

	workers := e.workers
	if workers > len(spans) {
		workers = len(spans)
	}

	results := make([][]float32, len(texts))
	jobs := make(chan span)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if failed() {
					continue
				}
				if err := e.limiter.Wait(ctx); err != nil {
					fail(mapContextErr(err))
					continue
				}
				vectors, err := e.embedBatch(ctx, texts[j.start:j.end])
				if err != nil {
					fail(err)
					continue
				}
				// Spans are disjoint, so writes need no lock.
				copy(results[j.start:j.end], vectors)
			}
		}()
	}

	for _, s := range spans {
		jobs <- s
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input: texts,
		Model: e.model,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, mapContextErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200]
		}
		return nil, fmt.Errorf("failed to parse response (body: %s): %w", bodyPreview, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("embeddings API error: %s", embResp.Error.Message)
	}

	vectors := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < len(vectors) {
			vectors[data.Index] = data.Embedding
		}
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embeddings API returned no vector for input %d", i)
		}
		if len(v) != e.dimension {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), e.dimension)
		}
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.provider + "/" + e.model
}

// mapContextErr surfaces cancellation and deadline expiry as the timeout
// error the pipeline promises its callers.
func mapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("embedding request: %w", domain.ErrTimeout)
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("embedding request: %w", domain.ErrTimeout)
	}
	return fmt.Errorf("embedding request failed: %w", err)
}
