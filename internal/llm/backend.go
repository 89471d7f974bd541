package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vendor-pipeline/internal/config"
	"github.com/sells-group/vendor-pipeline/pkg/anthropic"
	"github.com/sells-group/vendor-pipeline/pkg/azopenai"
	"github.com/sells-group/vendor-pipeline/pkg/gemini"
)

// Provider names.
const (
	ProviderAuto      = "auto"
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Request is one completion request as seen by a backend.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completion is a backend's answer. Raw keeps the provider response so the
// text can be recovered with ExtractText.
type Completion struct {
	Raw          any
	Model        string
	InputTokens  int
	OutputTokens int
}

// Backend is a single completion provider.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req Request) (Completion, error)
}

type azureBackend struct {
	client     azopenai.Client
	deployment string
}

func (b *azureBackend) Name() string { return ProviderAzure }

func (b *azureBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	temp, maxTokens := req.Temperature, req.MaxTokens
	resp, err := b.client.ChatCompletion(ctx, azopenai.ChatCompletionRequest{
		Messages: []azopenai.Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return Completion{}, err
	}
	model := resp.Model
	if model == "" {
		model = b.deployment
	}
	return Completion{
		Raw:          resp,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

type anthropicBackend struct {
	client anthropic.Client
	model  string
}

func (b *anthropicBackend) Name() string { return ProviderAnthropic }

func (b *anthropicBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	temp := req.Temperature
	resp, err := b.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   int64(req.MaxTokens),
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return Completion{}, err
	}
	return Completion{
		Raw:          resp,
		Model:        resp.Model,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

type geminiBackend struct {
	client gemini.Client
	model  string
}

func (b *geminiBackend) Name() string { return ProviderGemini }

func (b *geminiBackend) Complete(ctx context.Context, req Request) (Completion, error) {
	temp := req.Temperature
	resp, err := b.client.Generate(ctx, gemini.Request{
		Model:       b.model,
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: &temp,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Completion{}, err
	}
	return Completion{
		Raw:          resp,
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
	}, nil
}

func missingAzureVars(cfg config.AzureConfig) []string {
	var missing []string
	if cfg.Key == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if cfg.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if cfg.Deployment == "" {
		missing = append(missing, "AZURE_OPENAI_DEPLOYMENT")
	}
	return missing
}

// selectBackend builds the backend named by cfg.Provider. In auto mode the
// first provider with credentials wins, in the order azure, anthropic, gemini.
func selectBackend(ctx context.Context, cfg config.LLMConfig) (Backend, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}

	if provider == ProviderAuto {
		switch {
		case len(missingAzureVars(cfg.Azure)) == 0:
			provider = ProviderAzure
		case cfg.Anthropic.Key != "":
			provider = ProviderAnthropic
		case cfg.Gemini.Key != "":
			provider = ProviderGemini
		default:
			return nil, &MissingConfigError{Provider: ProviderAzure, Vars: missingAzureVars(cfg.Azure)}
		}
	}

	switch provider {
	case ProviderAzure:
		if missing := missingAzureVars(cfg.Azure); len(missing) > 0 {
			return nil, &MissingConfigError{Provider: provider, Vars: missing}
		}
		return &azureBackend{
			client: azopenai.NewClient(cfg.Azure.Key, cfg.Azure.Endpoint, cfg.Azure.Deployment,
				azopenai.WithAPIVersion(cfg.Azure.APIVersion)),
			deployment: cfg.Azure.Deployment,
		}, nil
	case ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			return nil, &MissingConfigError{Provider: provider, Vars: []string{"ANTHROPIC_API_KEY"}}
		}
		return &anthropicBackend{client: anthropic.NewClient(cfg.Anthropic.Key), model: cfg.Anthropic.Model}, nil
	case ProviderGemini:
		if cfg.Gemini.Key == "" {
			return nil, &MissingConfigError{Provider: provider, Vars: []string{"GEMINI_API_KEY"}}
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, err
		}
		return &geminiBackend{client: client, model: cfg.Gemini.Model}, nil
	default:
		return nil, eris.Wrapf(ErrNoSupportedClient, "provider %q", cfg.Provider)
	}
}
