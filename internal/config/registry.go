package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/cynicast/pkg/provider/live"
	"github.com/MrWong99/cynicast/pkg/provider/llm"
	"github.com/MrWong99/cynicast/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory constructs a provider of type T from its config entry.
type Factory[T any] func(ctx context.Context, entry ProviderEntry) (T, error)

type factories[T any] struct {
	kind string
	m    map[string]Factory[T]
}

func newFactories[T any](kind string) factories[T] {
	return factories[T]{kind: kind, m: make(map[string]Factory[T])}
}

// Registry maps provider names to their constructors for each provider
// kind. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	live factories[live.Provider]
	llm  factories[llm.Provider]
	stt  factories[stt.Provider]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		live: newFactories[live.Provider]("live"),
		llm:  newFactories[llm.Provider]("llm"),
		stt:  newFactories[stt.Provider]("stt"),
	}
}

func register[T any](r *Registry, f *factories[T], name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.m[name] = factory
}

func create[T any](ctx context.Context, r *Registry, f *factories[T], entry ProviderEntry) (T, error) {
	r.mu.RLock()
	factory, ok := f.m[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	p, err := factory(ctx, entry)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("config: create %s/%q: %w", f.kind, entry.Name, err)
	}
	return p, nil
}

func names[T any](r *Registry, f *factories[T]) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(f.m))
	for n := range f.m {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// RegisterLive registers a live transport factory under name. A later call
// with the same name replaces the earlier one.
func (r *Registry) RegisterLive(name string, factory Factory[live.Provider]) {
	register(r, &r.live, name, factory)
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory Factory[llm.Provider]) {
	register(r, &r.llm, name, factory)
}

// RegisterSTT registers a transcription provider factory under name.
func (r *Registry) RegisterSTT(name string, factory Factory[stt.Provider]) {
	register(r, &r.stt, name, factory)
}

// CreateLive instantiates the live transport named by entry.Name.
// Returns [ErrProviderNotRegistered] if no factory matches.
func (r *Registry) CreateLive(ctx context.Context, entry ProviderEntry) (live.Provider, error) {
	return create(ctx, r, &r.live, entry)
}

// CreateLLM instantiates the LLM provider named by entry.Name.
func (r *Registry) CreateLLM(ctx context.Context, entry ProviderEntry) (llm.Provider, error) {
	return create(ctx, r, &r.llm, entry)
}

// CreateSTT instantiates the transcription provider named by entry.Name.
func (r *Registry) CreateSTT(ctx context.Context, entry ProviderEntry) (stt.Provider, error) {
	return create(ctx, r, &r.stt, entry)
}

// LiveNames returns the registered live transport names, sorted.
func (r *Registry) LiveNames() []string { return names(r, &r.live) }

// LLMNames returns the registered LLM names, sorted.
func (r *Registry) LLMNames() []string { return names(r, &r.llm) }

// STTNames returns the registered transcription provider names, sorted.
func (r *Registry) STTNames() []string { return names(r, &r.stt) }
