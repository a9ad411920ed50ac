// Package config resolves the client configuration from layered sources.
//
// Precedence, lowest first: built-in defaults, ~/.stache/config.toml,
// a .env file in the working directory, STACHE_* environment variables,
// and finally command-line flags. The result is validated once and
// returned as an immutable domain.Config.
package config
