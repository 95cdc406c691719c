// Package llm wraps hosted chat-completion backends behind a single
// Completer contract and recovers JSON objects from noisy completions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 4096
	DefaultTimeout     = 120 * time.Second
)

// Options are the per-call generation parameters.
type Options struct {
	MaxTokens   int
	JSONMode    bool
	Temperature float64
	Timeout     time.Duration
}

// DefaultOptions returns the default generation parameters in text mode.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Completer sends one prompt to a completion backend and returns the raw text.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// CompleteJSON runs prompt in JSON mode and decodes the recovered object into v.
func CompleteJSON(ctx context.Context, c Completer, prompt string, opts Options, v any) error {
	opts.JSONMode = true
	raw, err := c.Complete(ctx, prompt, opts)
	if err != nil {
		return err
	}
	return ParseJSON(raw, v)
}

// Backend names a logical completion backend.
type Backend int

const (
	// Fast serves classification, structure, references and appendices.
	Fast Backend = iota
	// Content serves facts, sections and the abstract.
	Content
)

func (b Backend) String() string {
	switch b {
	case Fast:
		return "fast"
	case Content:
		return "content"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// Backends binds each logical backend to a Completer.
type Backends struct {
	Fast    Completer
	Content Completer
}

// For returns the Completer bound to b, or nil.
func (bs Backends) For(b Backend) Completer {
	switch b {
	case Fast:
		return bs.Fast
	case Content:
		return bs.Content
	default:
		return nil
	}
}

// Enabled reports whether both backends are bound.
func (bs Backends) Enabled() bool {
	return bs.Fast != nil && bs.Content != nil
}

var (
	// ErrTimeout is returned when a call exceeds its wall-clock budget.
	ErrTimeout = errors.New("llm: completion timed out")
	// ErrMalformedResponse is returned when no JSON object can be recovered.
	ErrMalformedResponse = errors.New("llm: malformed response")
	// ErrEmptyResponse is returned when the backend produced no choices.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// UpstreamError is a non-success response from the completion backend.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream returned %d: %s", e.Status, e.Message)
}

// timeoutContext applies the per-call budget. The returned check maps a
// deadline expiry of the budget itself to ErrTimeout.
func timeoutContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc, func(error) error) {
	callCtx, cancel := context.WithTimeout(ctx, d)
	check := func(err error) error {
		if err == nil {
			return nil
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return err
	}
	return callCtx, cancel, check
}
