// Package llm is the single entry point for model completions. It selects a
// backend from configuration and applies the call policy: a bounded worker
// pool, optional rate limiting, a circuit breaker and exponential retry.
package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/cost"
	"github.com/sells-group/vendor-pipeline/internal/resilience"
)

// SystemInstruction is sent with every completion.
const SystemInstruction = "Output ONLY valid JSON. No markdown, no extra text."

// Caller is the gateway surface used by the pipeline.
type Caller interface {
	Call(ctx context.Context, prompt string, opts ...CallOption) (string, error)
}

type callOptions struct {
	temperature float64
	maxTokens   int
	retries     int
}

// CallOption overrides a per-call default.
type CallOption func(*callOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CallOption {
	return func(o *callOptions) { o.maxTokens = n }
}

// WithRetries sets how many times a failed call is retried.
func WithRetries(n int) CallOption {
	return func(o *callOptions) { o.retries = n }
}

// Gateway issues completions against one backend.
type Gateway struct {
	backend        Backend
	sem            *semaphore.Weighted
	limiter        *rate.Limiter
	breaker        *resilience.CircuitBreaker
	calc           *cost.Calculator
	defaults       callOptions
	initialBackoff time.Duration

	mu    sync.Mutex
	usage Usage
}

// Usage is the running total of gateway activity since the gateway was built.
type Usage struct {
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Option configures the gateway.
type Option func(*Gateway)

// WithBackend replaces the configured provider.
func WithBackend(b Backend) Option {
	return func(g *Gateway) { g.backend = b }
}

// WithCalculator sets the calculator used for cost logging.
func WithCalculator(c *cost.Calculator) Option {
	return func(g *Gateway) { g.calc = c }
}

// New builds a gateway from cfg. Missing credentials are reported as a
// MissingConfigError.
func New(ctx context.Context, cfg config.LLMConfig, opts ...Option) (*Gateway, error) {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = 3
	}
	g := &Gateway{
		sem:  semaphore.NewWeighted(int64(workers)),
		calc: cost.NewCalculator(cost.DefaultRates()),
		defaults: callOptions{
			temperature: cfg.Temperature,
			maxTokens:   cfg.MaxTokens,
			retries:     cfg.Retries,
		},
		initialBackoff: time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
	}
	if g.defaults.maxTokens <= 0 {
		g.defaults.maxTokens = 2000
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(int(cfg.RequestsPerSecond), 1))
	}
	for _, o := range opts {
		o(g)
	}

	if g.backend == nil {
		b, err := selectBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
		g.backend = b
	}

	if cfg.CircuitThreshold > 0 {
		provider := g.backend.Name()
		g.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.CircuitThreshold,
			ResetTimeout:     time.Duration(cfg.CircuitResetSecs) * time.Second,
			ShouldTrip: func(err error) bool {
				return err != nil && !errors.Is(err, context.Canceled)
			},
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("llm: circuit state change",
					zap.String("provider", provider),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
	}

	zap.L().Info("llm: gateway ready",
		zap.String("provider", g.backend.Name()),
		zap.Int("max_workers", workers),
	)
	return g, nil
}

// Provider names the active backend.
func (g *Gateway) Provider() string { return g.backend.Name() }

// Call sends prompt to the backend and returns the completion text. Every
// backend failure is retried except cancellation, configuration errors and
// an open circuit. When all attempts fail the last error is returned inside
// a CallError.
func (g *Gateway) Call(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	o := g.defaults
	for _, opt := range opts {
		opt(&o)
	}
	req := Request{
		System:      SystemInstruction,
		Prompt:      prompt,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	policy := resilience.ExponentialRetry(o.retries, g.initialBackoff)
	policy.ShouldRetry = retryable
	policy.OnRetry = resilience.RetryLogger("llm", g.backend.Name())

	attempts := 0
	start := time.Now()
	comp, err := resilience.DoVal(ctx, policy, func(ctx context.Context) (Completion, error) {
		attempts++
		return g.attempt(ctx, req)
	})
	if err != nil {
		g.record(Usage{Calls: 1, Failures: 1})
		zap.L().Error("llm: call failed",
			zap.String("provider", g.backend.Name()),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return "", &CallError{Provider: g.backend.Name(), Attempts: attempts, Err: err}
	}

	usd := g.calc.Tokens(comp.Model, comp.InputTokens, comp.OutputTokens)
	g.record(Usage{Calls: 1, InputTokens: comp.InputTokens, OutputTokens: comp.OutputTokens, CostUSD: usd})
	zap.L().Info("llm: cost attribution",
		zap.String("provider", g.backend.Name()),
		zap.String("model", comp.Model),
		zap.Int("attempts", attempts),
		zap.Int("input_tokens", comp.InputTokens),
		zap.Int("output_tokens", comp.OutputTokens),
		zap.Float64("estimated_cost_usd", usd),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ExtractText(comp.Raw), nil
}

// Usage returns a copy of the running totals.
func (g *Gateway) Usage() Usage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage
}

func (g *Gateway) record(u Usage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.usage.Calls += u.Calls
	g.usage.Failures += u.Failures
	g.usage.InputTokens += u.InputTokens
	g.usage.OutputTokens += u.OutputTokens
	g.usage.CostUSD += u.CostUSD
}

func (g *Gateway) attempt(ctx context.Context, req Request) (Completion, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Completion{}, err
	}
	defer g.sem.Release(1)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Completion{}, err
		}
	}
	if g.breaker == nil {
		return g.backend.Complete(ctx, req)
	}
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (Completion, error) {
		return g.backend.Complete(ctx, req)
	})
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrMissingConfig),
		errors.Is(err, ErrNoSupportedClient),
		errors.Is(err, resilience.ErrCircuitOpen):
		return false
	}
	return true
}
