package llm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/internal/resilience"
)

// The Google client stack starts an opencensus worker from a package init.
var ignoreOpenCensus = goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start")

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		MaxWorkers:       3,
		Temperature:      0.7,
		MaxTokens:        2000,
		Retries:          2,
		InitialBackoffMs: 1,
	}
}

func newTestGateway(t *testing.T, cfg config.LLMConfig, b Backend) *Gateway {
	t.Helper()
	g, err := New(context.Background(), cfg, WithBackend(b))
	require.NoError(t, err)
	return g
}

func TestCall_Success(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, Request{
		System:      SystemInstruction,
		Prompt:      "List vendors",
		Temperature: 0.7,
		MaxTokens:   2000,
	}).Return(Completion{Raw: `{"vendors":[]}`, Model: "gpt-4o"}, nil).Once()

	g := newTestGateway(t, testLLMConfig(), b)
	text, err := g.Call(context.Background(), "List vendors")
	require.NoError(t, err)
	assert.Equal(t, `{"vendors":[]}`, text)
	b.AssertExpectations(t)
}

func TestCall_Options(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.Temperature == 0.2 && r.MaxTokens == 500
	})).Return(Completion{Raw: "ok"}, nil).Once()

	g := newTestGateway(t, testLLMConfig(), b)
	_, err := g.Call(context.Background(), "p", WithTemperature(0.2), WithMaxTokens(500))
	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestCall_RetriesThenSucceeds(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{}, eris.New("bad gateway")).Twice()
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{Raw: "{}"}, nil).Once()

	g := newTestGateway(t, testLLMConfig(), b)
	text, err := g.Call(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
	b.AssertNumberOfCalls(t, "Complete", 3)
}

func TestCall_ExhaustedReturnsCallError(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{}, eris.New("invalid request"))

	g := newTestGateway(t, testLLMConfig(), b)
	_, err := g.Call(context.Background(), "p")
	require.Error(t, err)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, 3, callErr.Attempts)
	assert.Contains(t, err.Error(), "invalid request")
	b.AssertNumberOfCalls(t, "Complete", 3)
}

func TestCall_TracksUsage(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.Anything).
		Return(Completion{Raw: "{}", Model: "gpt-4o", InputTokens: 1_000_000, OutputTokens: 100_000}, nil).Once()
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{}, eris.New("boom")).Once()

	g := newTestGateway(t, testLLMConfig(), b)
	_, err := g.Call(context.Background(), "p")
	require.NoError(t, err)
	_, err = g.Call(context.Background(), "p", WithRetries(0))
	require.Error(t, err)

	u := g.Usage()
	assert.Equal(t, 2, u.Calls)
	assert.Equal(t, 1, u.Failures)
	assert.Equal(t, 1_000_000, u.InputTokens)
	assert.Equal(t, 100_000, u.OutputTokens)
	assert.InDelta(t, 3.50, u.CostUSD, 1e-9)
}

func TestCall_WithRetriesZero(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{}, eris.New("boom"))

	g := newTestGateway(t, testLLMConfig(), b)
	_, err := g.Call(context.Background(), "p", WithRetries(0))
	require.Error(t, err)
	b.AssertNumberOfCalls(t, "Complete", 1)
}

func TestCall_CancellationNotRetried(t *testing.T) {
	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{}, context.Canceled)

	g := newTestGateway(t, testLLMConfig(), b)
	_, err := g.Call(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	b.AssertNumberOfCalls(t, "Complete", 1)
}

func TestCall_CircuitOpens(t *testing.T) {
	cfg := testLLMConfig()
	cfg.Retries = 0
	cfg.CircuitThreshold = 2
	cfg.CircuitResetSecs = 60

	b := &MockBackend{}
	b.On("Complete", mock.Anything, mock.Anything).Return(Completion{}, eris.New("server error"))

	g := newTestGateway(t, cfg, b)
	for i := 0; i < 2; i++ {
		_, err := g.Call(context.Background(), "p")
		require.Error(t, err)
	}
	_, err := g.Call(context.Background(), "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	b.AssertNumberOfCalls(t, "Complete", 2)
}

func TestCall_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreOpenCensus)

	cfg := testLLMConfig()
	cfg.MaxWorkers = 2

	var inFlight, peak atomic.Int32
	b := funcBackend(func(ctx context.Context, _ Request) (Completion, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return Completion{Raw: "{}"}, nil
	})

	g := newTestGateway(t, cfg, b)
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Call(context.Background(), "p")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestCall_ContextCancelledWhileQueued(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreOpenCensus)

	cfg := testLLMConfig()
	cfg.MaxWorkers = 1

	release := make(chan struct{})
	b := funcBackend(func(ctx context.Context, _ Request) (Completion, error) {
		select {
		case <-release:
			return Completion{Raw: "{}"}, nil
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		}
	})
	g := newTestGateway(t, cfg, b)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Call(context.Background(), "holder")
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Call(ctx, "queued")
	require.Error(t, err)

	close(release)
	<-done
}

func TestNew_SelectsProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LLMConfig
		want string
	}{
		{
			name: "auto prefers azure",
			cfg: config.LLMConfig{
				Provider:  "auto",
				Azure:     config.AzureConfig{Key: "k", Endpoint: "https://x.openai.azure.com", Deployment: "gpt-4o"},
				Anthropic: config.AnthropicConfig{Key: "a"},
			},
			want: ProviderAzure,
		},
		{
			name: "auto falls back to anthropic",
			cfg:  config.LLMConfig{Provider: "auto", Anthropic: config.AnthropicConfig{Key: "a"}},
			want: ProviderAnthropic,
		},
		{
			name: "auto falls back to gemini",
			cfg:  config.LLMConfig{Gemini: config.GeminiConfig{Key: "g"}},
			want: ProviderGemini,
		},
		{
			name: "explicit anthropic",
			cfg:  config.LLMConfig{Provider: "Anthropic", Anthropic: config.AnthropicConfig{Key: "a"}},
			want: ProviderAnthropic,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, g.Provider())
		})
	}
}

func TestNew_MissingConfig(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{
		Provider: "azure",
		Azure:    config.AzureConfig{Key: "k"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfig))
	assert.Contains(t, err.Error(), "AZURE_OPENAI_ENDPOINT")
	assert.Contains(t, err.Error(), "AZURE_OPENAI_DEPLOYMENT")
	assert.NotContains(t, err.Error(), "AZURE_OPENAI_API_KEY")

	_, err = New(context.Background(), config.LLMConfig{Provider: "auto"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingConfig))
	assert.Contains(t, err.Error(), "AZURE_OPENAI_API_KEY")
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "cohere"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSupportedClient))
}
