// Package transport holds what the HTTP and function transports share:
// the retry policy, status-to-error mapping, transport selection and the
// process-wide request throttle.
package transport
