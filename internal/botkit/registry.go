package botkit

import (
	"fmt"
	"sync"
)

// BuildFunc constructs a runtime for a bot token
type BuildFunc func(token string) (*Runtime, error)

// Registry maps bot tokens to live runtimes. A runtime is constructed at
// most once per token: construction runs under the registry lock, so
// concurrent first requests for one token never build twice.
type Registry struct {
	mu       sync.Mutex
	runtimes map[string]*Runtime
	build    BuildFunc
}

// NewRegistry creates a registry that builds missing runtimes with build
func NewRegistry(build BuildFunc) *Registry {
	return &Registry{
		runtimes: make(map[string]*Runtime),
		build:    build,
	}
}

// Resolve returns the runtime for token, constructing it on first use
func (r *Registry) Resolve(token string) (*Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rt, ok := r.runtimes[token]; ok {
		return rt, nil
	}

	rt, err := r.build(token)
	if err != nil {
		return nil, fmt.Errorf("build runtime: %w", err)
	}
	r.runtimes[token] = rt
	return rt, nil
}

// Lookup returns the runtime for token without constructing one
func (r *Registry) Lookup(token string) (*Runtime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.runtimes[token]
	return rt, ok
}

// Evict drops the runtime for token. The next Resolve builds a fresh one;
// callers evict after a project's token changes or its project is deleted.
func (r *Registry) Evict(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.runtimes, token)
}

// Len reports the number of live runtimes
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.runtimes)
}
