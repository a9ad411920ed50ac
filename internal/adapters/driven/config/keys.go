package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "STACHE_"

// LoaderKeyPrefix marks per-extension loader overrides ("loader.pdf").
const LoaderKeyPrefix = "loader."

// Kind is the type a key's value is stored as.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindList
)

// Key describes one configuration setting.
type Key struct {
	Name        string
	Description string
	Kind        Kind

	// Secret values are masked when configuration is displayed.
	Secret bool

	// Aliases are extra environment variable names, checked before the canonical one.
	Aliases []string
}

// Env returns the canonical environment variable for the key.
func (k Key) Env() string {
	return EnvPrefix + strings.ToUpper(k.Name)
}

// Keys lists every supported setting in display order.
var Keys = []Key{
	{Name: "transport", Description: "auto, http or function (lambda)"},
	{Name: "api_url", Description: "REST API base URL", Aliases: []string{"STACHE_URL"}},
	{Name: "timeout", Kind: KindNumber, Description: "HTTP request timeout in seconds (1-300)"},
	{Name: "cognito_client_id", Description: "OAuth client id"},
	{Name: "cognito_client_secret", Description: "OAuth client secret", Secret: true},
	{Name: "cognito_token_url", Description: "OAuth token endpoint"},
	{Name: "cognito_scope", Description: "OAuth scopes, space separated"},
	{Name: "lambda_function_name", Description: "API function name or ARN", Aliases: []string{"STACHE_LAMBDA_FUNCTION"}},
	{Name: "aws_profile", Description: "AWS shared config profile"},
	{Name: "aws_region", Description: "AWS region"},
	{Name: "lambda_timeout", Kind: KindNumber, Description: "function invocation timeout in seconds (1-900)"},
	{Name: "retry_attempts", Kind: KindNumber, Description: "total attempts per request (1-10)"},
	{Name: "retry_base_delay", Kind: KindNumber, Description: "first retry delay in seconds"},
	{Name: "retry_max_delay", Kind: KindNumber, Description: "retry delay cap in seconds"},
	{Name: "token_refresh_margin", Kind: KindNumber, Description: "refresh tokens this many seconds before expiry"},
	{Name: "requests_per_second", Kind: KindNumber, Description: "client-side throttle, 0 disables"},
	{Name: "workers", Kind: KindNumber, Description: "default ingest workers (1-32)"},
	{Name: "log_level", Description: "debug, info, warn or error"},
	{Name: "log_format", Description: "console or json"},
	{Name: "enrichers", Kind: KindList, Description: "comma separated enrichers applied during ingest"},
}

// Parse converts a command line value into the type stored for the key.
func (k Key) Parse(value string) (any, error) {
	value = strings.TrimSpace(value)
	switch k.Kind {
	case KindNumber:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &domain.ValidationError{Field: k.Name, Message: "must be a number"}
		}
		return f, nil
	case KindList:
		return splitList(value), nil
	default:
		return value, nil
	}
}

// LookupKey returns the key with the given name. Loader overrides
// ("loader.<ext>") are accepted for any extension.
func LookupKey(name string) (Key, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if ext, ok := strings.CutPrefix(name, LoaderKeyPrefix); ok && ext != "" {
		return Key{Name: name, Description: "loader override for ." + ext}, true
	}
	for _, k := range Keys {
		if k.Name == name {
			return k, true
		}
	}
	return Key{}, false
}

// KeyNames returns the supported key names, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(Keys))
	for _, k := range Keys {
		names = append(names, k.Name)
	}
	sort.Strings(names)
	return names
}

// envToKey maps STACHE_* variables to configuration keys.
// Aliases are applied before canonical names so the canonical one wins.
func envToKey(env map[string]string) map[string]string {
	out := make(map[string]string)
	for _, k := range Keys {
		for _, alias := range k.Aliases {
			if v, ok := env[alias]; ok {
				out[k.Name] = v
			}
		}
		if v, ok := env[k.Env()]; ok {
			out[k.Name] = v
		}
	}
	for name, v := range env {
		if ext, ok := strings.CutPrefix(name, EnvPrefix+"LOADER_"); ok && ext != "" {
			out[LoaderKeyPrefix+strings.TrimPrefix(domain.NormaliseExtension(ext), ".")] = v
		}
	}
	return out
}
