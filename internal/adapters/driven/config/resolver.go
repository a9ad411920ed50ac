package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// DefaultDotEnv is the .env file read from the working directory.
const DefaultDotEnv = ".env"

// Sources are the layers Resolve reads, lowest precedence first.
type Sources struct {
	// Store is the persisted config file. Nil skips the layer.
	Store driven.ConfigStore

	// DotEnvPath is read without exporting anything to the process.
	// Empty means DefaultDotEnv; a missing file is ignored.
	DotEnvPath string

	// Environ is the process environment in KEY=VALUE form. Nil means os.Environ().
	Environ []string

	// Flags holds values set on the command line, keyed by configuration key.
	Flags map[string]string
}

// settings is the flat, validated form of the configuration.
type settings struct {
	Transport          string   `key:"transport" validate:"oneof=auto http https function lambda"`
	APIURL             string   `key:"api_url" validate:"required,http_url"`
	Timeout            float64  `key:"timeout" validate:"gte=1,lte=300"`
	ClientID           string   `key:"cognito_client_id"`
	ClientSecret       string   `key:"cognito_client_secret"`
	TokenURL           string   `key:"cognito_token_url" validate:"omitempty,http_url"`
	Scope              string   `key:"cognito_scope"`
	FunctionName       string   `key:"lambda_function_name"`
	AWSProfile         string   `key:"aws_profile"`
	AWSRegion          string   `key:"aws_region" validate:"required"`
	LambdaTimeout      float64  `key:"lambda_timeout" validate:"gte=1,lte=900"`
	RetryAttempts      int      `key:"retry_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelay     float64  `key:"retry_base_delay" validate:"gt=0,lte=60"`
	RetryMaxDelay      float64  `key:"retry_max_delay" validate:"gtefield=RetryBaseDelay,lte=300"`
	TokenRefreshMargin float64  `key:"token_refresh_margin" validate:"gte=0,lte=3600"`
	RequestsPerSecond  float64  `key:"requests_per_second" validate:"gte=0"`
	Workers            int      `key:"workers" validate:"gte=1,lte=32"`
	LogLevel           string   `key:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat          string   `key:"log_format" validate:"oneof=console json"`
	Enrichers          []string `key:"enrichers"`
}

func defaultSettings() settings {
	d := domain.DefaultConfig()
	return settings{
		Transport:          string(d.Transport),
		APIURL:             d.APIURL,
		Timeout:            d.Timeout.Seconds(),
		AWSRegion:          d.AWSRegion,
		LambdaTimeout:      d.FunctionTimeout.Seconds(),
		RetryAttempts:      d.Retry.MaxAttempts,
		RetryBaseDelay:     d.Retry.BaseDelay.Seconds(),
		RetryMaxDelay:      d.Retry.MaxDelay.Seconds(),
		TokenRefreshMargin: d.TokenRefreshMargin.Seconds(),
		Workers:            d.Workers,
		LogLevel:           d.LogLevel,
		LogFormat:          d.LogFormat,
	}
}

// Resolve layers the sources over the defaults and validates the result.
func Resolve(src Sources) (domain.Config, error) {
	raw, err := layer(src)
	if err != nil {
		return domain.Config{}, err
	}

	s := defaultSettings()
	if err := s.apply(raw); err != nil {
		return domain.Config{}, err
	}
	s.normalise()

	if err := convertValidationError(validatorInstance().Struct(s)); err != nil {
		return domain.Config{}, errors.WithHint(err, hintFor(err))
	}

	cfg, err := s.toConfig()
	if err != nil {
		return domain.Config{}, err
	}
	cfg.LoaderOverrides = loaderOverrides(raw)

	if cfg.Transport == domain.TransportFunction && cfg.FunctionName == "" {
		return domain.Config{}, errors.WithHint(
			&domain.ValidationError{Field: "lambda_function_name", Message: "is required for the function transport"},
			"Example: STACHE_LAMBDA_FUNCTION=stache-api",
		)
	}
	if partialOAuth(cfg.OAuth) {
		logger.Warn("OAuth is partially configured; requests will be sent without a token")
	}
	return cfg, nil
}

// layer merges every source into one key/value map.
func layer(src Sources) (map[string]string, error) {
	raw := make(map[string]string)

	if src.Store != nil {
		for _, key := range src.Store.Keys() {
			val, _ := src.Store.Get(key)
			raw[strings.ToLower(key)] = stringify(val)
		}
	}

	dotenvPath := src.DotEnvPath
	if dotenvPath == "" {
		dotenvPath = DefaultDotEnv
	}
	dotenv, err := godotenv.Read(dotenvPath)
	switch {
	case err == nil:
		logger.Debug("read %d settings from %s", len(dotenv), dotenvPath)
		for k, v := range envToKey(dotenv) {
			raw[k] = v
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, errors.Wrapf(err, "read %s", dotenvPath)
	}

	environ := src.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for k, v := range envToKey(parseEnviron(environ)) {
		raw[k] = v
	}

	for k, v := range src.Flags {
		raw[strings.ToLower(k)] = v
	}
	return raw, nil
}

func parseEnviron(environ []string) map[string]string {
	env := make(map[string]string)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	return env
}

func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

// apply parses raw values into the settings fields named by their key tags.
func (s *settings) apply(raw map[string]string) error {
	rv := reflect.ValueOf(s).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		key := rt.Field(i).Tag.Get("key")
		val, ok := raw[key]
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		field := rv.Field(i)

		switch field.Kind() {
		case reflect.String:
			field.SetString(val)
		case reflect.Int:
			n, err := strconv.Atoi(val)
			if err != nil {
				return &domain.ValidationError{Field: key, Message: fmt.Sprintf("must be an integer (got %q)", val)}
			}
			field.SetInt(int64(n))
		case reflect.Float64:
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return &domain.ValidationError{Field: key, Message: fmt.Sprintf("must be a number (got %q)", val)}
			}
			field.SetFloat(f)
		case reflect.Slice:
			field.Set(reflect.ValueOf(splitList(val)))
		}
	}
	return nil
}

func (s *settings) normalise() {
	s.Transport = strings.ToLower(strings.TrimSpace(s.Transport))
	s.LogLevel = strings.ToLower(s.LogLevel)
	if s.LogLevel == "warning" {
		s.LogLevel = "warn"
	}
	s.LogFormat = strings.ToLower(s.LogFormat)
	s.APIURL = strings.TrimRight(s.APIURL, "/")
}

func (s settings) toConfig() (domain.Config, error) {
	kind, err := domain.ParseTransportKind(s.Transport)
	if err != nil {
		return domain.Config{}, err
	}
	return domain.Config{
		Transport:    kind,
		APIURL:       s.APIURL,
		FunctionName: s.FunctionName,
		AWSProfile:   s.AWSProfile,
		AWSRegion:    s.AWSRegion,
		OAuth: domain.OAuthConfig{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			TokenURL:     s.TokenURL,
			Scope:        s.Scope,
		},
		Timeout:         seconds(s.Timeout),
		FunctionTimeout: seconds(s.LambdaTimeout),
		Retry: domain.RetryConfig{
			MaxAttempts: s.RetryAttempts,
			BaseDelay:   seconds(s.RetryBaseDelay),
			MaxDelay:    seconds(s.RetryMaxDelay),
		},
		TokenRefreshMargin: seconds(s.TokenRefreshMargin),
		RequestsPerSecond:  s.RequestsPerSecond,
		Workers:            s.Workers,
		Enrichers:          s.Enrichers,
		LogLevel:           s.LogLevel,
		LogFormat:          s.LogFormat,
	}, nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loaderOverrides(raw map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range raw {
		ext, ok := strings.CutPrefix(k, LoaderKeyPrefix)
		if !ok || ext == "" || strings.TrimSpace(v) == "" {
			continue
		}
		out[domain.NormaliseExtension(ext)] = strings.TrimSpace(v)
	}
	return out
}

func partialOAuth(o domain.OAuthConfig) bool {
	set := 0
	for _, v := range []string{o.ClientID, o.ClientSecret, o.TokenURL} {
		if v != "" {
			set++
		}
	}
	return set > 0 && set < 3
}

func hintFor(err error) string {
	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		if strings.HasPrefix(valErr.Field, "cognito_") {
			return "Check the STACHE_COGNITO_* settings"
		}
		return fmt.Sprintf("Set it with 'stache config set %s <value>' or %s%s", valErr.Field, EnvPrefix, strings.ToUpper(valErr.Field))
	}
	return "Run 'stache config show' to inspect the resolved configuration"
}
