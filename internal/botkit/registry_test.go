package botkit

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_BuildsOncePerToken(t *testing.T) {
	var builds int64
	reg := NewRegistry(func(token string) (*Runtime, error) {
		atomic.AddInt64(&builds, 1)
		return &Runtime{States: NewStateStore()}, nil
	})

	const goroutines = 50
	results := make([]*Runtime, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rt, err := reg.Resolve("token-a")
			require.NoError(t, err)
			results[i] = rt
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&builds))
	for _, rt := range results {
		assert.Same(t, results[0], rt)
	}
}

func TestRegistry_DistinctTokensGetDistinctRuntimes(t *testing.T) {
	reg := NewRegistry(func(token string) (*Runtime, error) {
		return &Runtime{States: NewStateStore()}, nil
	})

	a, err := reg.Resolve("token-a")
	require.NoError(t, err)
	b, err := reg.Resolve("token-b")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_EvictForcesRebuild(t *testing.T) {
	var builds int64
	reg := NewRegistry(func(token string) (*Runtime, error) {
		atomic.AddInt64(&builds, 1)
		return &Runtime{States: NewStateStore()}, nil
	})

	first, err := reg.Resolve("token-a")
	require.NoError(t, err)

	reg.Evict("token-a")

	_, ok := reg.Lookup("token-a")
	assert.False(t, ok)

	second, err := reg.Resolve("token-a")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.EqualValues(t, 2, builds)
}

func TestRegistry_BuildErrorIsNotCached(t *testing.T) {
	var builds int64
	reg := NewRegistry(func(token string) (*Runtime, error) {
		if atomic.AddInt64(&builds, 1) == 1 {
			return nil, errors.New("boom")
		}
		return &Runtime{States: NewStateStore()}, nil
	})

	_, err := reg.Resolve("token-a")
	assert.Error(t, err)

	rt, err := reg.Resolve("token-a")
	assert.NoError(t, err)
	assert.NotNil(t, rt)
}
