package retrieval

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multibot/internal/testutil"
)

func TestFallbackEmbedding_Deterministic(t *testing.T) {
	a := fallbackEmbedding("график работы кофейни")
	b := fallbackEmbedding("график работы кофейни")

	assert.Equal(t, a, b)
	assert.Len(t, a, EmbeddingDim)
}

func TestFallbackEmbedding_Normalized(t *testing.T) {
	vec := fallbackEmbedding("доставка по городу бесплатная")

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestFallbackEmbedding_EmptyText(t *testing.T) {
	vec := fallbackEmbedding("")

	require.Len(t, vec, EmbeddingDim)
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestVectorizer_UsesRemoteService(t *testing.T) {
	want := make([]float32, EmbeddingDim)
	want[0] = 1

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectorize", r.URL.Path)

		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "вопрос", req.Text)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"vector": want,
			"dim":    EmbeddingDim,
		})
	}))
	defer srv.Close()

	v := NewVectorizer(srv.URL, testutil.NewTestLogger())

	vec, err := v.Vectorize(context.Background(), "вопрос")

	require.NoError(t, err)
	assert.Equal(t, want, vec)
}

func TestVectorizer_FallsBackWhenServiceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVectorizer(srv.URL, testutil.NewTestLogger())

	vec, err := v.Vectorize(context.Background(), "вопрос")

	require.NoError(t, err)
	assert.Equal(t, fallbackEmbedding("вопрос"), vec)
}

func TestVectorizer_NoURLUsesFallback(t *testing.T) {
	v := NewVectorizer("", testutil.NewTestLogger())

	vec, err := v.Vectorize(context.Background(), "вопрос")

	require.NoError(t, err)
	assert.Equal(t, fallbackEmbedding("вопрос"), vec)
}
