package domain

import (
	"strings"
	"time"
)

// TransportKind selects how the client reaches the Stache service.
type TransportKind string

const (
	// TransportAuto picks the function transport when a function name is
	// configured, and HTTP otherwise.
	TransportAuto TransportKind = "auto"

	// TransportHTTP talks to the REST API over HTTP(S).
	TransportHTTP TransportKind = "http"

	// TransportFunction invokes the API function directly.
	TransportFunction TransportKind = "function"
)

// ParseTransportKind converts a user supplied value into a TransportKind.
// "lambda" is accepted as an alias of "function". Empty input means auto.
func ParseTransportKind(s string) (TransportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return TransportAuto, nil
	case "http", "https":
		return TransportHTTP, nil
	case "function", "lambda":
		return TransportFunction, nil
	default:
		return "", &ValidationError{Field: "transport", Message: "must be one of auto, http, function"}
	}
}

// Worker bounds for the ingestion pool.
const (
	MinWorkers = 1
	MaxWorkers = 32
)

// Configuration defaults.
const (
	DefaultAPIURL             = "http://localhost:8000"
	DefaultAWSRegion          = "us-east-1"
	DefaultTimeout            = 60 * time.Second
	DefaultFunctionTimeout    = 60 * time.Second
	DefaultRetryAttempts      = 3
	DefaultRetryBaseDelay     = 1 * time.Second
	DefaultRetryMaxDelay      = 10 * time.Second
	DefaultTokenRefreshMargin = 60 * time.Second
)

// ClampWorkers bounds a requested worker count to [MinWorkers, MaxWorkers].
func ClampWorkers(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// OAuthConfig holds client-credentials grant settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

// RetryConfig bounds transport retries.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential delay before jitter is added.
	MaxDelay time.Duration
}

// Config is the immutable configuration snapshot for the client.
// It is built once at startup and passed by value into every constructor.
type Config struct {
	Transport TransportKind

	// APIURL is the base URL of the REST API, without a trailing slash.
	APIURL string

	// FunctionName is the name or ARN of the API function.
	FunctionName string
	AWSProfile   string
	AWSRegion    string

	OAuth OAuthConfig

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// FunctionTimeout bounds a single function invocation.
	FunctionTimeout time.Duration

	Retry RetryConfig

	// TokenRefreshMargin is how long before expiry a cached token is refreshed.
	TokenRefreshMargin time.Duration

	// RequestsPerSecond throttles outgoing calls across all workers. Zero disables.
	RequestsPerSecond float64

	// Workers is the default ingestion pool width.
	Workers int

	// LoaderOverrides maps a lower-case extension (".pdf") to a loader name.
	LoaderOverrides map[string]string

	// Enrichers lists the enrichment plugins to apply during ingestion.
	Enrichers []string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Transport:       TransportAuto,
		APIURL:          DefaultAPIURL,
		AWSRegion:       DefaultAWSRegion,
		Timeout:         DefaultTimeout,
		FunctionTimeout: DefaultFunctionTimeout,
		Retry: RetryConfig{
			MaxAttempts: DefaultRetryAttempts,
			BaseDelay:   DefaultRetryBaseDelay,
			MaxDelay:    DefaultRetryMaxDelay,
		},
		TokenRefreshMargin: DefaultTokenRefreshMargin,
		Workers:            MinWorkers,
		LogLevel:           "warn",
		LogFormat:          "console",
	}
}

// OAuthEnabled reports whether enough OAuth settings are present to
// perform a client-credentials exchange.
func (c Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.ClientSecret != "" && c.OAuth.TokenURL != ""
}

// NormaliseExtension lower-cases an extension and ensures a leading dot.
func NormaliseExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
