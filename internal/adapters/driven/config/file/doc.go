// Package file provides the TOML configuration store kept in ~/.stache.
package file
