package openai

import "time"

type Option func(*Provider)

// WithAPIKey overrides the OPENAI_API_KEY environment variable.
func WithAPIKey(apiKey string) Option {
	return func(p *Provider) { p.apiKey = apiKey }
}

// WithModel sets the default model used when a request names none.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithMaxRetries sets the retry budget for transient API failures.
func WithMaxRetries(n int) Option {
	return func(p *Provider) { p.maxRetries = n }
}

// WithRetryBaseWait sets the retry backoff base wait.
func WithRetryBaseWait(d time.Duration) Option {
	return func(p *Provider) { p.retryBaseWait = d }
}
