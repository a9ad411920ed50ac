package factory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

type nopInvoker struct{}

func (nopInvoker) Invoke(context.Context, *lambda.InvokeInput, ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	return &lambda.InvokeOutput{}, nil
}

func TestNew_HTTPByDefault(t *testing.T) {
	cfg := domain.DefaultConfig()
	tr, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, domain.TransportHTTP, tr.Kind())
}

func TestNew_FunctionWhenNamed(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.FunctionName = "stache-api"

	tr, err := New(context.Background(), cfg, Options{Invoker: nopInvoker{}})
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, domain.TransportFunction, tr.Kind())
}

func TestNew_ExplicitFunctionWithoutName(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Transport = domain.TransportFunction

	_, err := New(context.Background(), cfg, Options{Invoker: nopInvoker{}})
	var valErr *domain.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestNew_InvalidURL(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.APIURL = "not a url"

	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestBuilder_SharesTokenManager(t *testing.T) {
	var exchanges atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/oauth2/token" {
			exchanges.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	cfg := domain.DefaultConfig()
	cfg.APIURL = srv.URL
	cfg.OAuth = domain.OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/oauth2/token"}

	b := NewBuilder(cfg, Options{UserAgent: "stache-cli/test"})
	for i := 0; i < 3; i++ {
		tr, err := b.Transport(context.Background())
		require.NoError(t, err)
		out, err := tr.Send(context.Background(), domain.Request{Method: http.MethodGet, Path: "/health"})
		require.NoError(t, err)
		assert.Equal(t, "ok", out.Payload["status"])
		require.NoError(t, tr.Close())
	}
	assert.Equal(t, int32(1), exchanges.Load())
}

func TestBuilder_SeparateInvokerPerTransport(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Transport = domain.TransportFunction
	cfg.FunctionName = "stache-api"

	b := NewBuilder(cfg, Options{})
	b.awsCfg = &aws.Config{Region: "us-east-1"}

	first, err := b.functionInvoker(context.Background())
	require.NoError(t, err)
	second, err := b.functionInvoker(context.Background())
	require.NoError(t, err)

	require.IsType(t, &lambda.Client{}, first)
	assert.NotSame(t, first.(*lambda.Client), second.(*lambda.Client))
}

func TestBuilder_SeparateHTTPPoolPerTransport(t *testing.T) {
	b := NewBuilder(domain.DefaultConfig(), Options{})

	first, err := b.Transport(context.Background())
	require.NoError(t, err)
	defer first.Close()
	second, err := b.Transport(context.Background())
	require.NoError(t, err)
	defer second.Close()

	assert.NotSame(t, first, second)
	assert.Equal(t, domain.TransportHTTP, first.Kind())
}
