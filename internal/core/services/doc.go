// Package services implements the driving port interfaces.
//
// Client is the knowledge base facade over a driven.Transport.
// IngestOrchestrator expands paths into jobs, loads each file through the
// loader registry and submits the text with one Client per worker, using an
// ants worker pool and a single aggregating goroutine for results.
//
// Services depend only on domain and the port interfaces; transports,
// loaders and enrichers are injected by the composition root.
package services
