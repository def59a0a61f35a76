package llm

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Resilient wraps a Client with a per-call timeout and bounded exponential
// retry. The policy lives here, at the collaborator boundary, so no call
// site has to carry its own.
type Resilient struct {
	Inner      Client
	Timeout    time.Duration
	MaxRetries uint64
	Backoff    time.Duration
}

func WithPolicy(inner Client, timeout time.Duration, maxRetries int, backoff time.Duration) *Resilient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Resilient{Inner: inner, Timeout: timeout, MaxRetries: uint64(maxRetries), Backoff: backoff}
}

func (r *Resilient) Name() string  { return r.Inner.Name() }
func (r *Resilient) Model() string { return r.Inner.Model() }

func (r *Resilient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	var out string
	backoff := retry.WithMaxRetries(r.MaxRetries, retry.NewExponential(r.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.Timeout)
		defer cancel()
		res, genErr := r.Inner.Generate(callCtx, prompt, opts)
		if genErr != nil {
			return retry.RetryableError(genErr)
		}
		out = res
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
