package driven

import (
	"context"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// Transport delivers one request to the Stache service.
// Implementations apply retries and map failures onto the domain error taxonomy:
// ConnectionError, AuthError, NotFoundError and APIError.
type Transport interface {
	// Send performs the request and returns the decoded outcome.
	Send(ctx context.Context, req domain.Request) (*domain.Outcome, error)

	// Kind reports which transport this is.
	Kind() domain.TransportKind

	// Close releases connections and handles. It is safe to call more than once.
	Close() error
}

// TokenSource provides bearer tokens for authenticated HTTP calls.
// A single TokenSource is shared by every transport in the process.
type TokenSource interface {
	// Token returns a valid access token, refreshing it when close to expiry.
	Token(ctx context.Context) (string, error)

	// Invalidate drops any cached token so the next call re-authenticates.
	Invalidate()
}
