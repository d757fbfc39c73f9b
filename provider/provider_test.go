package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deepnoodle-ai/gantry"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	fail   bool
	delay  time.Duration
	calls  []string
	output string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Invoke(ctx context.Context, request *gantry.ProviderRequest) (*gantry.ProviderResponse, error) {
	f.calls = append(f.calls, request.Model)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.fail {
		return nil, errors.New("simulated provider failure")
	}
	return &gantry.ProviderResponse{Output: f.output}, nil
}

func TestRegistryDuplicateProvider(t *testing.T) {
	_, err := NewRegistry([]gantry.Provider{
		&fakeProvider{name: "alpha"},
		&fakeProvider{name: "alpha"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate provider")
}

func TestInvokePrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "alpha", output: "done"}
	registry, err := NewRegistry([]gantry.Provider{primary})
	require.NoError(t, err)

	cfg := gantry.ModelConfig{Provider: "alpha", Model: "alpha-large"}
	response, err := registry.Invoke(context.Background(), cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.NoError(t, err)
	require.Equal(t, "done", response.Output)
	require.Equal(t, []string{"alpha-large"}, primary.calls)
}

func TestInvokeFallbackChainOrder(t *testing.T) {
	primary := &fakeProvider{name: "alpha", fail: true}
	second := &fakeProvider{name: "beta", fail: true}
	third := &fakeProvider{name: "gamma", output: "rescued"}
	registry, err := NewRegistry([]gantry.Provider{primary, second, third})
	require.NoError(t, err)

	cfg := gantry.ModelConfig{
		Provider: "alpha",
		Model:    "alpha-large",
		Fallbacks: []gantry.ModelRef{
			{Provider: "beta", Model: "beta-medium"},
			{Provider: "gamma", Model: "gamma-small"},
		},
	}
	response, err := registry.Invoke(context.Background(), cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.NoError(t, err)
	require.Equal(t, "rescued", response.Output)

	// One attempt per chain entry, in order.
	require.Equal(t, []string{"alpha-large"}, primary.calls)
	require.Equal(t, []string{"beta-medium"}, second.calls)
	require.Equal(t, []string{"gamma-small"}, third.calls)
}

func TestInvokeChainExhausted(t *testing.T) {
	primary := &fakeProvider{name: "alpha", fail: true}
	second := &fakeProvider{name: "beta", fail: true}
	registry, err := NewRegistry([]gantry.Provider{primary, second})
	require.NoError(t, err)

	cfg := gantry.ModelConfig{
		Provider:  "alpha",
		Model:     "alpha-large",
		Fallbacks: []gantry.ModelRef{{Provider: "beta", Model: "beta-medium"}},
	}
	_, err = registry.Invoke(context.Background(), cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.Error(t, err)

	var invocationErr *InvocationError
	require.ErrorAs(t, err, &invocationErr)
	require.Equal(t, "beta", invocationErr.Provider)
	require.Len(t, primary.calls, 1)
	require.Len(t, second.calls, 1)
}

func TestInvokeTimeoutTriggersFallback(t *testing.T) {
	slow := &fakeProvider{name: "alpha", delay: time.Second, output: "too late"}
	fast := &fakeProvider{name: "beta", output: "in time"}
	registry, err := NewRegistry([]gantry.Provider{slow, fast})
	require.NoError(t, err)

	cfg := gantry.ModelConfig{
		Provider:  "alpha",
		Model:     "alpha-large",
		Timeout:   20 * time.Millisecond,
		Fallbacks: []gantry.ModelRef{{Provider: "beta", Model: "beta-medium"}},
	}
	response, err := registry.Invoke(context.Background(), cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.NoError(t, err)
	require.Equal(t, "in time", response.Output)
}

func TestInvokeTimeoutError(t *testing.T) {
	slow := &fakeProvider{name: "alpha", delay: time.Second}
	registry, err := NewRegistry([]gantry.Provider{slow})
	require.NoError(t, err)

	cfg := gantry.ModelConfig{Provider: "alpha", Model: "alpha-large", Timeout: 20 * time.Millisecond}
	_, err = registry.Invoke(context.Background(), cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "alpha", timeoutErr.Provider)
}

func TestInvokeUnknownProvider(t *testing.T) {
	registry, err := NewRegistry(nil)
	require.NoError(t, err)

	cfg := gantry.ModelConfig{Provider: "ghost", Model: "ghost-1"}
	_, err = registry.Invoke(context.Background(), cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not registered")
}

func TestInvokeCancellationStopsChain(t *testing.T) {
	slow := &fakeProvider{name: "alpha", delay: time.Second}
	unused := &fakeProvider{name: "beta", output: "never"}
	registry, err := NewRegistry([]gantry.Provider{slow, unused})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	cfg := gantry.ModelConfig{
		Provider:  "alpha",
		Model:     "alpha-large",
		Fallbacks: []gantry.ModelRef{{Provider: "beta", Model: "beta-medium"}},
	}
	_, err = registry.Invoke(ctx, cfg, &gantry.ProviderRequest{Prompt: "go"})
	require.Error(t, err)
	require.Empty(t, unused.calls)
}
