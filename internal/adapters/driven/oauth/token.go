// Package oauth provides the client-credentials token manager used by the
// HTTP transport.
package oauth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// exchangeTimeout bounds one token exchange.
const exchangeTimeout = 30 * time.Second

// Verify interface compliance.
var _ driven.TokenSource = (*TokenManager)(nil)

// TokenManager caches a client-credentials access token and refreshes it
// shortly before expiry. Concurrent callers that find the cache stale share
// a single exchange and its result. Safe for concurrent use.
type TokenManager struct {
	cfg    clientcredentials.Config
	margin time.Duration
	client *http.Client
	now    func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
	group singleflight.Group
}

// NewTokenManager creates a token manager. A nil httpClient uses the default client.
func NewTokenManager(cfg domain.OAuthConfig, margin time.Duration, httpClient *http.Client) *TokenManager {
	var scopes []string
	if cfg.Scope != "" {
		scopes = strings.Fields(cfg.Scope)
	}
	if margin < 0 {
		margin = 0
	}
	return &TokenManager{
		cfg: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		margin: margin,
		client: httpClient,
		now:    time.Now,
	}
}

// Token returns a valid access token, exchanging credentials when the cached
// token is missing or within the refresh margin of its expiry.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok := m.cached(); tok != "" {
		return tok, nil
	}

	ch := m.group.DoChan("token", func() (any, error) {
		// Another caller may have refreshed while we waited to enter.
		if tok := m.cached(); tok != "" {
			return tok, nil
		}
		return m.exchange(ctx)
	})

	select {
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "wait for token")
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next call re-authenticates.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
}

func (m *TokenManager) cached() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == nil || m.token.AccessToken == "" {
		return ""
	}
	if !m.token.Expiry.IsZero() && m.token.Expiry.Sub(m.now()) < m.margin {
		return ""
	}
	return m.token.AccessToken
}

// exchange performs the client-credentials grant. It is detached from the
// caller's cancellation because other callers may be sharing the result.
func (m *TokenManager) exchange(ctx context.Context) (string, error) {
	exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
	defer cancel()
	if m.client != nil {
		exCtx = context.WithValue(exCtx, oauth2.HTTPClient, m.client)
	}

	logger.Debug("exchanging client credentials at %s", m.cfg.TokenURL)
	tok, err := m.cfg.Token(exCtx)
	if err != nil {
		return "", classify(err)
	}

	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
	return tok.AccessToken, nil
}

func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorCode
		if retrieveErr.ErrorDescription != "" {
			msg += ": " + retrieveErr.ErrorDescription
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			if msg == "" {
				msg = retrieveErr.Response.Status
			}
			return &domain.ConnectionError{Message: "token endpoint unavailable: " + msg, Err: err}
		}
		if msg == "" {
			msg = "token exchange rejected"
		}
		return &domain.AuthError{Message: msg, Err: err}
	}
	return &domain.ConnectionError{Message: "token exchange failed", Err: err}
}
