// Package domain defines the core entities of the Stache client.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Config: The immutable client configuration snapshot
//   - Request / Outcome: Transport-neutral request and response values
//   - LoadedDocument: Text and metadata extracted from a local file
//   - IngestJob / IngestResult: Units of work for the ingestion orchestrator
//   - ConnectionError, AuthError, NotFoundError, APIError, ValidationError,
//     LoadError: The error taxonomy shared by both transports
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
