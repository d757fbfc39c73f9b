package provider

import (
	"fmt"
	"time"
)

// TimeoutError indicates a provider did not respond within the configured
// timeout. Recovered via the fallback chain, else surfaces as node failure.
type TimeoutError struct {
	Provider string
	Model    string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q timed out after %s (model %s)", e.Provider, e.Timeout, e.Model)
}

// InvocationError indicates a provider-reported failure.
type InvocationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("provider %q failed (model %s): %v", e.Provider, e.Model, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
