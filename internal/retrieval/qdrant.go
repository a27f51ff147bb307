package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Point is one stored chunk of business knowledge
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// Hit is one search result with its similarity score
type Hit struct {
	Score float32
	Text  string
}

// Qdrant is a client for the Qdrant REST API
type Qdrant struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewQdrant creates a Qdrant REST client
func NewQdrant(baseURL, apiKey string, logger *zap.Logger) *Qdrant {
	return &Qdrant{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// EnsureCollection creates the collection if it does not exist yet
func (q *Qdrant) EnsureCollection(ctx context.Context, name string) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     EmbeddingDim,
			"distance": "Cosine",
		},
	}

	status, err := q.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	// 409 means the collection already exists, which is fine
	if status != http.StatusOK && status != http.StatusConflict {
		return fmt.Errorf("create collection %s: status %d", name, status)
	}
	return nil
}

// DeleteCollection drops the collection and all its points
func (q *Qdrant) DeleteCollection(ctx context.Context, name string) error {
	status, err := q.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
	if err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	if status != http.StatusOK && status != http.StatusNotFound {
		return fmt.Errorf("delete collection %s: status %d", name, status)
	}
	return nil
}

// Upsert writes points into the collection, replacing points with the
// same ID
func (q *Qdrant) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	payload := make([]map[string]interface{}, 0, len(points))
	for _, p := range points {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		payload = append(payload, map[string]interface{}{
			"id":      id,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}

	body := map[string]interface{}{"points": payload}
	status, err := q.do(ctx, http.MethodPut,
		"/collections/"+collection+"/points?wait=true", body, nil)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("upsert into %s: status %d", collection, status)
	}
	return nil
}

// Search returns up to limit chunks closest to the query vector
func (q *Qdrant) Search(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var result struct {
		Result []struct {
			Score   float32                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}

	status, err := q.do(ctx, http.MethodPost,
		"/collections/"+collection+"/points/search", body, &result)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}
	if status == http.StatusNotFound {
		// collection vanished, answer with no context instead of failing
		q.logger.Warn("search against missing collection", zap.String("collection", collection))
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search %s: status %d", collection, status)
	}

	hits := make([]Hit, 0, len(result.Result))
	for _, r := range result.Result {
		text, _ := r.Payload["text"].(string)
		hits = append(hits, Hit{Score: r.Score, Text: text})
	}
	return hits, nil
}

func (q *Qdrant) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
