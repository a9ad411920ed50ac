// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Transport: Delivers requests to the Stache service (HTTP or function)
//   - Loader: Extracts text and metadata from one file type
//   - LoaderRegistry: Selects the active loader per extension
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - TokenSource: Bearer tokens. Without it, requests are sent unauthenticated.
//   - Enricher / EnrichmentPipeline: Text and metadata enrichment before ingest.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
