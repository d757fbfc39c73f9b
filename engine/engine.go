// Package engine drives a workflow graph run: it computes ready nodes,
// dispatches them to handlers with bounded concurrency, evaluates gates,
// checkpoints every outcome, and resumes interrupted runs from the
// checkpoint log without re-executing finished nodes.
package engine

import (
	"fmt"
	"log"

	"go.jetify.com/typeid"

	"github.com/deepnoodle-ai/gantry/checkpoint"
	"github.com/deepnoodle-ai/gantry/graph"
	"github.com/deepnoodle-ai/gantry/handler"
	"github.com/deepnoodle-ai/gantry/slogger"
)

const (
	defaultConcurrency = 4

	// defaultMaxCycles bounds the dispatch loop as a backstop against a
	// bug looping a run forever. Legitimate runs stay far below it.
	defaultMaxCycles = 10000
)

// Engine executes runs of one validated graph. It is safe to run multiple
// runs from the same Engine sequentially; a single run must not be started
// twice concurrently.
type Engine struct {
	graph       *graph.Graph
	store       checkpoint.Store
	handlers    *handler.Set
	logger      slogger.Logger
	concurrency int
	maxCycles   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the run logger.
func WithLogger(logger slogger.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithConcurrency bounds how many nodes execute in parallel.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithMaxCycles bounds the number of dispatch-loop iterations per run.
// Zero disables the bound.
func WithMaxCycles(n int) Option {
	return func(e *Engine) { e.maxCycles = n }
}

// New creates an Engine. The graph is validated on the first Run call,
// before any dispatch.
func New(g *graph.Graph, store checkpoint.Store, handlers *handler.Set, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if handlers == nil {
		return nil, fmt.Errorf("handler set is required")
	}
	e := &Engine{
		graph:       g,
		store:       store,
		handlers:    handlers,
		logger:      slogger.DefaultLogger,
		concurrency: defaultConcurrency,
		maxCycles:   defaultMaxCycles,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	return e, nil
}

// NewRunID creates a new run id.
func NewRunID() string {
	value, err := typeid.WithPrefix("run")
	if err != nil {
		log.Fatalf("error creating new id: %v", err)
	}
	return value.String()
}
