package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stache-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// isolated returns sources that ignore the real environment and working directory.
func isolated(t *testing.T) Sources {
	t.Helper()
	return Sources{
		DotEnvPath: filepath.Join(t.TempDir(), ".env"),
		Environ:    []string{},
	}
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(isolated(t))
	require.NoError(t, err)

	def := domain.DefaultConfig()
	assert.Equal(t, domain.TransportAuto, cfg.Transport)
	assert.Equal(t, def.APIURL, cfg.APIURL)
	assert.Equal(t, def.Timeout, cfg.Timeout)
	assert.Equal(t, def.Retry, cfg.Retry)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, 1, cfg.Workers)
	assert.Empty(t, cfg.LoaderOverrides)
	assert.False(t, cfg.OAuthEnabled())
}

func TestResolve_Precedence(t *testing.T) {
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("api_url", "https://file.example.com/"))
	require.NoError(t, store.Set("workers", 2))
	require.NoError(t, store.Set("timeout", 10))
	require.NoError(t, store.Set("aws_region", "eu-west-1"))

	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("STACHE_WORKERS=4\nSTACHE_TIMEOUT=20\n"), 0600))

	src := Sources{
		Store:      store,
		DotEnvPath: dotenv,
		Environ:    []string{"STACHE_TIMEOUT=30", "PATH=/usr/bin", "STACHE_LOG_LEVEL=DEBUG"},
		Flags:      map[string]string{"transport": "http"},
	}

	cfg, err := Resolve(src)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.APIURL, "trailing slash stripped")
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, 4, cfg.Workers, ".env beats file")
	assert.Equal(t, 30*time.Second, cfg.Timeout, "environment beats .env")
	assert.Equal(t, domain.TransportHTTP, cfg.Transport, "flags beat everything")
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestResolve_EnvAliases(t *testing.T) {
	src := isolated(t)
	src.Environ = []string{
		"STACHE_URL=https://alias.example.com",
		"STACHE_LAMBDA_FUNCTION=stache-api",
	}

	cfg, err := Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, "https://alias.example.com", cfg.APIURL)
	assert.Equal(t, "stache-api", cfg.FunctionName)

	src.Environ = append(src.Environ, "STACHE_API_URL=https://canonical.example.com")
	cfg, err = Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, "https://canonical.example.com", cfg.APIURL)
}

func TestResolve_OAuthAndRetry(t *testing.T) {
	src := isolated(t)
	src.Environ = []string{
		"STACHE_COGNITO_CLIENT_ID=id",
		"STACHE_COGNITO_CLIENT_SECRET=secret",
		"STACHE_COGNITO_TOKEN_URL=https://auth.example.com/oauth2/token",
		"STACHE_COGNITO_SCOPE=stache/read stache/write",
		"STACHE_RETRY_ATTEMPTS=5",
		"STACHE_RETRY_BASE_DELAY=0.5",
		"STACHE_RETRY_MAX_DELAY=4",
		"STACHE_TOKEN_REFRESH_MARGIN=120",
		"STACHE_REQUESTS_PER_SECOND=2.5",
		"STACHE_ENRICHERS=whitespace, stats",
	}

	cfg, err := Resolve(src)
	require.NoError(t, err)

	assert.True(t, cfg.OAuthEnabled())
	assert.Equal(t, "stache/read stache/write", cfg.OAuth.Scope)
	assert.Equal(t, domain.RetryConfig{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}, cfg.Retry)
	assert.Equal(t, 2*time.Minute, cfg.TokenRefreshMargin)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, []string{"whitespace", "stats"}, cfg.Enrichers)
}

func TestResolve_LoaderOverrides(t *testing.T) {
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("loader.pdf", "pdf"))
	require.NoError(t, store.Set("loader.png", "ocr-image"))

	src := isolated(t)
	src.Store = store
	src.Environ = []string{"STACHE_LOADER_PDF=pdftotext"}

	cfg, err := Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{".pdf": "pdftotext", ".png": "ocr-image"}, cfg.LoaderOverrides)
}

func TestResolve_FunctionTransport(t *testing.T) {
	src := isolated(t)
	src.Flags = map[string]string{"transport": "lambda"}

	_, err := Resolve(src)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "lambda_function_name", valErr.Field)
	assert.Contains(t, errors.FlattenHints(err), "STACHE_LAMBDA_FUNCTION")

	src.Flags["lambda_function_name"] = "stache-api"
	cfg, err := Resolve(src)
	require.NoError(t, err)
	assert.Equal(t, domain.TransportFunction, cfg.Transport)
}

func TestResolve_TransportNames(t *testing.T) {
	tests := []struct {
		value string
		want  domain.TransportKind
	}{
		{"auto", domain.TransportAuto},
		{"http", domain.TransportHTTP},
		{"https", domain.TransportHTTP},
		{" HTTPS ", domain.TransportHTTP},
		{"function", domain.TransportFunction},
		{"Lambda", domain.TransportFunction},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			src := isolated(t)
			src.Flags = map[string]string{"transport": tt.value, "lambda_function_name": "stache-api"}

			cfg, err := Resolve(src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Transport)
		})
	}
}

func TestResolve_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		field string
	}{
		{"bad transport", "STACHE_TRANSPORT=grpc", "transport"},
		{"bad url", "STACHE_API_URL=ftp://example.com", "api_url"},
		{"timeout too high", "STACHE_TIMEOUT=301", "timeout"},
		{"timeout not a number", "STACHE_TIMEOUT=soon", "timeout"},
		{"lambda timeout", "STACHE_LAMBDA_TIMEOUT=901", "lambda_timeout"},
		{"retry attempts", "STACHE_RETRY_ATTEMPTS=0", "retry_attempts"},
		{"workers", "STACHE_WORKERS=33", "workers"},
		{"workers not int", "STACHE_WORKERS=2.5", "workers"},
		{"max below base", "STACHE_RETRY_MAX_DELAY=0.5", "retry_max_delay"},
		{"log level", "STACHE_LOG_LEVEL=trace", "log_level"},
		{"token url", "STACHE_COGNITO_TOKEN_URL=not-a-url", "cognito_token_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := isolated(t)
			src.Environ = []string{tt.env}

			_, err := Resolve(src)
			var valErr *domain.ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tt.field, valErr.Field)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestResolve_ValidationHint(t *testing.T) {
	src := isolated(t)
	src.Environ = []string{"STACHE_COGNITO_TOKEN_URL=nope"}

	_, err := Resolve(src)
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "STACHE_COGNITO_*")
}

func TestLookupKey(t *testing.T) {
	k, ok := LookupKey("API_URL")
	require.True(t, ok)
	assert.Equal(t, "STACHE_API_URL", k.Env())

	k, ok = LookupKey("loader.epub")
	require.True(t, ok)
	assert.Contains(t, k.Description, ".epub")

	_, ok = LookupKey("colour")
	assert.False(t, ok)

	secret, _ := LookupKey("cognito_client_secret")
	assert.True(t, secret.Secret)
}

func TestKey_Parse(t *testing.T) {
	workers, ok := LookupKey("workers")
	require.True(t, ok)
	v, err := workers.Parse("8")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)

	delay, _ := LookupKey("retry_base_delay")
	v, err = delay.Parse(" 0.5 ")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	_, err = delay.Parse("soon")
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "retry_base_delay", valErr.Field)

	enrichers, _ := LookupKey("enrichers")
	v, err = enrichers.Parse("whitespace, stats")
	require.NoError(t, err)
	assert.Equal(t, []string{"whitespace", "stats"}, v)

	url, _ := LookupKey("api_url")
	v, err = url.Parse("https://kb.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://kb.example.com", v)
}
