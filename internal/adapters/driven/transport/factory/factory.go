// Package factory builds the configured transport.
package factory

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/oauth"
	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport"
	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport/function"
	"github.com/custodia-labs/stache-cli/internal/adapters/driven/transport/rest"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Options carries collaborators that tests may replace.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string

	// HTTPClient is used for API and token requests. Nil uses the default.
	HTTPClient *http.Client

	// Invoker replaces the AWS Lambda client. An injected invoker is
	// shared by every transport the Builder creates.
	Invoker function.Invoker
}

// Builder creates transports that share one rate limiter and one token
// manager. Connection handles are never shared: each transport gets its
// own HTTP connection pool or Lambda client. Safe for concurrent use.
type Builder struct {
	cfg     domain.Config
	opts    Options
	limiter *transport.RateLimiter
	tokens  driven.TokenSource

	mu     sync.Mutex
	awsCfg *aws.Config
}

// NewBuilder prepares the shared collaborators for cfg.
func NewBuilder(cfg domain.Config, opts Options) *Builder {
	b := &Builder{
		cfg:     cfg,
		opts:    opts,
		limiter: transport.NewRateLimiter(cfg.RequestsPerSecond),
	}
	if cfg.OAuthEnabled() {
		b.tokens = oauth.NewTokenManager(cfg.OAuth, cfg.TokenRefreshMargin, opts.HTTPClient)
	}
	return b
}

// New builds a single transport for cfg.
func New(ctx context.Context, cfg domain.Config, opts Options) (driven.Transport, error) {
	return NewBuilder(cfg, opts).Transport(ctx)
}

// Transport selects and builds a transport wrapped in the configured retry policy.
func (b *Builder) Transport(ctx context.Context) (driven.Transport, error) {
	t, err := b.build(ctx)
	if err != nil {
		return nil, err
	}
	return transport.WithRetry(t, transport.NewRetryPolicy(b.cfg.Retry)), nil
}

// functionInvoker returns a fresh Lambda client. The AWS configuration is
// loaded once and reused.
func (b *Builder) functionInvoker(ctx context.Context) (function.Invoker, error) {
	if b.opts.Invoker != nil {
		return b.opts.Invoker, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.awsCfg == nil {
		cfg, err := function.LoadAWSConfig(ctx, b.cfg.AWSProfile, b.cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		b.awsCfg = &cfg
	}
	return function.NewInvoker(*b.awsCfg), nil
}

func (b *Builder) build(ctx context.Context) (driven.Transport, error) {
	cfg := b.cfg
	kind := transport.Select(cfg)
	logger.Debug("transport: %s", kind)

	switch kind {
	case domain.TransportFunction:
		invoker, err := b.functionInvoker(ctx)
		if err != nil {
			return nil, err
		}
		t, err := function.New(invoker, function.Options{
			FunctionName: cfg.FunctionName,
			Timeout:      cfg.FunctionTimeout,
			Limiter:      b.limiter,
			UserAgent:    b.opts.UserAgent,
		})
		if err != nil {
			return nil, err
		}
		return t, nil

	default:
		t, err := rest.New(rest.Options{
			BaseURL:    cfg.APIURL,
			Timeout:    cfg.Timeout,
			Tokens:     b.tokens,
			Limiter:    b.limiter,
			UserAgent:  b.opts.UserAgent,
			HTTPClient: b.opts.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}
