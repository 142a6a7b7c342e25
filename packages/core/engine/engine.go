// Package engine wires the security gate, processor registry, response
// cache, execution strategies, and history store into a single submission
// pipeline.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/reqprobe/reqprobe/packages/cache"
	"github.com/reqprobe/reqprobe/packages/executor"
	"github.com/reqprobe/reqprobe/packages/gate"
	"github.com/reqprobe/reqprobe/packages/history"
	"github.com/reqprobe/reqprobe/packages/processor"
	"github.com/reqprobe/reqprobe/packages/request"
)

// Engine owns one request for the duration of a Submit call. Every
// collaborator is injected; a zero-option Engine runs on in-memory defaults.
type Engine struct {
	gate     *gate.Gate
	registry *processor.Registry
	cache    *cache.Cache
	selector *executor.Selector
	batch    *executor.Batch
	history  *history.Store
	metrics  *executor.Metrics
	timeout  time.Duration
	logger   *log.Logger
}

type Option func(*Engine)

func WithGate(g *gate.Gate) Option {
	return func(e *Engine) {
		e.gate = g
	}
}

func WithRegistry(r *processor.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func WithCache(c *cache.Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

func WithSelector(s *executor.Selector) Option {
	return func(e *Engine) {
		e.selector = s
	}
}

func WithBatch(b *executor.Batch) Option {
	return func(e *Engine) {
		e.batch = b
	}
}

func WithHistory(h *history.Store) Option {
	return func(e *Engine) {
		e.history = h
	}
}

func WithMetrics(m *executor.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTimeout sets the execution timeout applied to requests that do not
// carry their own.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{
		timeout: executor.DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.gate == nil {
		e.gate = gate.New()
	}
	if e.registry == nil {
		e.registry = processor.NewRegistry()
	}
	if e.cache == nil {
		e.cache = cache.New()
	}
	if e.selector == nil {
		e.selector = executor.NewSelector(executor.NewDirect(), executor.NewIsolated())
	}
	if e.batch == nil {
		e.batch = executor.NewBatch()
	}
	if e.history == nil {
		e.history = history.NewStore(history.NewMemoryKV())
	}
	if e.metrics == nil {
		e.metrics = executor.NewMetrics()
	}

	return e
}

// Submit runs one request through the full pipeline: gate, cache lookup,
// body encoding, execution, cache store, history. It always returns a
// complete outcome and never panics on a bad request.
func (e *Engine) Submit(ctx context.Context, req *request.Request) *request.Outcome {
	req = req.Clone()
	req.Normalize()

	if err := req.ValidateMethod(); err != nil {
		return request.FailureOutcome(req.ID, request.ErrorKindValidation, err.Error())
	}
	if req.HasBody() && !req.AllowsBody() {
		return request.FailureOutcome(req.ID, request.ErrorKindValidation,
			fmt.Sprintf("%s requests must not carry a body", req.Method))
	}
	if err := e.gate.Validate(req); err != nil {
		// Gate rejections never reach the executor, cache, or history.
		return request.FailureOutcome(req.ID, request.ErrorKindValidation, err.Error())
	}

	fingerprint := cache.Fingerprint(req)
	if outcome, ok := e.cache.Get(fingerprint); ok {
		return outcome
	}

	if req.HasBody() {
		body, headers, err := e.registry.Encode(req)
		if err != nil {
			return request.FailureOutcome(req.ID, request.ErrorKindValidation, err.Error())
		}
		req.RawBody = body
		for k, v := range headers {
			req.SetHeader(k, v)
		}
	}

	e.history.Record(req)

	strategy := e.selector.Select(req)
	outcome := e.execute(ctx, strategy, req)

	e.metrics.Record(outcome)
	if outcome.Success {
		e.cache.Put(fingerprint, outcome)
	}
	e.history.Complete(req.ID, outcome)

	return outcome
}

// SubmitBatch runs the requests in bounded concurrent windows. The returned
// slice preserves input order; one bad request never fails the batch.
func (e *Engine) SubmitBatch(ctx context.Context, reqs []*request.Request) []*request.Outcome {
	return e.batch.ExecuteBatch(ctx, reqs, e.Submit)
}

// History returns the request log, newest first.
func (e *Engine) History() []*history.Record {
	return e.history.List()
}

// ClearCache empties the response cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// RemoveHistory drops one record from the request log.
func (e *Engine) RemoveHistory(requestID string) {
	e.history.Remove(requestID)
}

// ClearHistory drops every record from the request log.
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

// Metrics exposes the execution aggregates.
func (e *Engine) Metrics() *executor.Metrics {
	return e.metrics
}

// Close flushes pending history writes.
func (e *Engine) Close() error {
	return e.history.Close()
}

// execute runs the strategy with a recovery boundary: anything escaping the
// executor is downgraded to an Unknown outcome instead of crashing the
// submission pipeline.
func (e *Engine) execute(ctx context.Context, strategy executor.Strategy, req *request.Request) (outcome *request.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("engine: %s strategy panicked on %s: %v", strategy.Name(), req.ID, r)
			outcome = request.FailureOutcome(req.ID, request.ErrorKindUnknown, fmt.Sprintf("execution failed: %v", r))
		}
	}()

	if req.Timeout <= 0 {
		req.Timeout = e.timeout
	}

	outcome = strategy.Execute(ctx, req)
	if outcome == nil {
		outcome = request.FailureOutcome(req.ID, request.ErrorKindUnknown, "strategy returned no outcome")
	}
	return outcome
}
