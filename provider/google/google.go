// Package google implements a gantry.Provider backed by the Google GenAI
// API.
package google

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/deepnoodle-ai/gantry/provider"
	"github.com/deepnoodle-ai/gantry/retry"
	"google.golang.org/genai"
)

const ProviderName = "google"

var (
	DefaultModel         = "gemini-2.5-flash"
	DefaultMaxRetries    = 3
	DefaultRetryBaseWait = 1 * time.Second
)

var _ gantry.Provider = &Provider{}

type Provider struct {
	apiKey        string
	model         string
	maxRetries    int
	retryBaseWait time.Duration
	client        *genai.Client
	mutex         sync.Mutex
}

func New(opts ...Option) *Provider {
	p := &Provider{
		apiKey:        os.Getenv("GEMINI_API_KEY"),
		model:         DefaultModel,
		maxRetries:    DefaultMaxRetries,
		retryBaseWait: DefaultRetryBaseWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) initClient(ctx context.Context) (*genai.Client, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create google genai client: %w", err)
	}
	p.client = client
	return p.client, nil
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) Invoke(ctx context.Context, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	client, err := p.initClient(ctx)
	if err != nil {
		return nil, err
	}

	model := request.Model
	if model == "" {
		model = p.model
	}
	contents := genai.Text(provider.FormatPrompt(request))

	var response *genai.GenerateContentResponse
	err = retry.Do(ctx, func() error {
		var callErr error
		response, callErr = client.Models.GenerateContent(ctx, model, contents, nil)
		if callErr != nil {
			return fmt.Errorf("error generating content: %w", callErr)
		}
		return nil
	}, retry.WithMaxRetries(p.maxRetries), retry.WithBaseWait(p.retryBaseWait))
	if err != nil {
		return nil, err
	}

	output, err := responseText(response)
	if err != nil {
		return nil, err
	}
	return &gantry.ProviderResponse{
		Output: output,
		Fields: provider.ParseFields(output),
	}, nil
}

func responseText(response *genai.GenerateContentResponse) (string, error) {
	if response == nil || len(response.Candidates) == 0 {
		return "", fmt.Errorf("empty response from google genai")
	}
	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("no content in google genai response")
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
