package transport

import (
	"context"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Transport = (*Retrying)(nil)

// Retrying wraps a transport so every Send runs under a RetryPolicy.
// Retries are invisible to callers except through latency.
type Retrying struct {
	next   driven.Transport
	policy *RetryPolicy
}

// WithRetry decorates t with policy.
func WithRetry(t driven.Transport, policy *RetryPolicy) *Retrying {
	return &Retrying{next: t, policy: policy}
}

// Send forwards to the wrapped transport, retrying transient failures.
func (r *Retrying) Send(ctx context.Context, req domain.Request) (*domain.Outcome, error) {
	var out *domain.Outcome
	err := r.policy.Do(ctx, req.RouteKey(), func(ctx context.Context) error {
		var err error
		out, err = r.next.Send(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Kind returns the wrapped transport's kind.
func (r *Retrying) Kind() domain.TransportKind {
	return r.next.Kind()
}

// Close closes the wrapped transport.
func (r *Retrying) Close() error {
	return r.next.Close()
}
