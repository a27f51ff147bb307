// Package retrieval embeds text and searches per-project vector
// collections for the chunks most relevant to a customer question.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EmbeddingDim is the dimensionality every collection is created with
const EmbeddingDim = 384

// Vectorizer turns text into embeddings via the external vectorizer
// service, falling back to a local deterministic embedding when the
// service is not configured or not reachable
type Vectorizer struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewVectorizer creates a vectorizer client. An empty url means the local
// fallback embedding is always used.
func NewVectorizer(url string, logger *zap.Logger) *Vectorizer {
	return &Vectorizer{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

// Vectorize embeds one text. The same text always yields the same vector.
func (v *Vectorizer) Vectorize(ctx context.Context, text string) ([]float32, error) {
	if v.url == "" {
		return fallbackEmbedding(text), nil
	}

	vec, err := v.remoteVectorize(ctx, text)
	if err != nil {
		v.logger.Warn("vectorizer unavailable, using local embedding", zap.Error(err))
		return fallbackEmbedding(text), nil
	}
	return vec, nil
}

func (v *Vectorizer) remoteVectorize(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		v.url+"/vectorize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vectorizer returned status %d", resp.StatusCode)
	}

	var result struct {
		Vector []float32 `json:"vector"`
		Dim    int       `json:"dim"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode vectorizer response: %w", err)
	}
	if len(result.Vector) != EmbeddingDim {
		return nil, fmt.Errorf("vectorizer returned %d dims, want %d", len(result.Vector), EmbeddingDim)
	}
	return result.Vector, nil
}

// fallbackEmbedding hashes words into a fixed-size normalized vector.
// It is not semantic, but it is deterministic and keeps search working
// when the vectorizer service is down.
func fallbackEmbedding(text string) []float32 {
	vec := make([]float32, EmbeddingDim)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		sum := h.Sum32()

		idx := int(sum % EmbeddingDim)
		if sum&1 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
