// Package provider wires model-invocation providers to the engine: a
// registry of named providers plus a fallback-chain invoker with uniform
// timeout and error handling. Concrete providers live in the subpackages.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/slogger"
)

// Registry holds the providers available to a run, keyed by name. It is
// populated once at engine start and read-only afterwards.
type Registry struct {
	providers map[string]gantry.Provider
	logger    slogger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for fallback diagnostics.
func WithLogger(logger slogger.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates a registry containing the given providers.
func NewRegistry(providers []gantry.Provider, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]gantry.Provider, len(providers)),
		logger:    slogger.DefaultLogger,
	}
	for _, p := range providers {
		if p.Name() == "" {
			return nil, fmt.Errorf("provider has no name")
		}
		if _, exists := r.providers[p.Name()]; exists {
			return nil, fmt.Errorf("duplicate provider %q", p.Name())
		}
		r.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (gantry.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke sends the request to the configured primary provider and, on
// timeout or provider-reported failure, walks the fallback chain in order
// with one attempt per entry. Every attempt gets the configured timeout.
// The returned error wraps the chain's final failure.
func (r *Registry) Invoke(ctx context.Context, cfg gantry.ModelConfig, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	chain := cfg.Chain()
	var lastErr error
	for i, ref := range chain {
		p, ok := r.Get(ref.Provider)
		if !ok {
			lastErr = fmt.Errorf("provider %q is not registered", ref.Provider)
			continue
		}
		if i > 0 {
			r.logger.Warn("falling back to alternate provider",
				"provider", ref.Provider,
				"model", ref.Model,
				"attempt", i+1,
				"error", lastErr)
		}
		response, err := r.invokeOne(ctx, p, ref, cfg, request)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all providers in chain failed: %w", lastErr)
}

func (r *Registry) invokeOne(ctx context.Context, p gantry.Provider, ref gantry.ModelRef, cfg gantry.ModelConfig, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	attemptCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	attempt := *request
	attempt.Model = ref.Model
	attempt.ReasoningEffort = cfg.ReasoningEffort
	attempt.ToolProfile = cfg.ToolProfile

	response, err := p.Invoke(attemptCtx, &attempt)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &TimeoutError{Provider: ref.Provider, Model: ref.Model, Timeout: cfg.Timeout}
		}
		return nil, &InvocationError{Provider: ref.Provider, Model: ref.Model, Err: err}
	}
	return response, nil
}
