// Package openai implements a gantry.Provider backed by the OpenAI chat
// completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/retry"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const ProviderName = "openai"

var (
	DefaultModel         = "gpt-4o"
	DefaultMaxRetries    = 3
	DefaultRetryBaseWait = 1 * time.Second
)

var _ gantry.Provider = &Provider{}

type Provider struct {
	apiKey        string
	model         string
	maxRetries    int
	retryBaseWait time.Duration
	client        openaisdk.Client
}

func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:        os.Getenv("OPENAI_API_KEY"),
		model:         DefaultModel,
		maxRetries:    DefaultMaxRetries,
		retryBaseWait: DefaultRetryBaseWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openaisdk.NewClient(option.WithAPIKey(p.apiKey))
	return p
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) Invoke(ctx context.Context, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	model := request.Model
	if model == "" {
		model = p.model
	}

	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(provider.FormatPrompt(request)),
		},
	}
	if request.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(request.ReasoningEffort)
	}

	var completion *openaisdk.ChatCompletion
	err := retry.Do(ctx, func() error {
		var callErr error
		completion, callErr = p.client.Chat.Completions.New(ctx, params)
		if callErr != nil {
			var apiErr *openaisdk.Error
			if errors.As(callErr, &apiErr) && !retry.ShouldRetry(apiErr.StatusCode) {
				return retry.MarkPermanent(callErr)
			}
			return callErr
		}
		return nil
	}, retry.WithMaxRetries(p.maxRetries), retry.WithBaseWait(p.retryBaseWait))
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	output := completion.Choices[0].Message.Content
	return &gantry.ProviderResponse{
		Output: output,
		Fields: provider.ParseFields(output),
	}, nil
}
