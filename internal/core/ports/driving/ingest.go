package driving

import (
	"context"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

// ProgressFunc receives each job result as it completes.
// Calls are serialized; implementations may write to a console directly.
type ProgressFunc func(result domain.IngestResult)

// IngestOrchestrator ingests files concurrently.
type IngestOrchestrator interface {
	// Plan expands paths into the ordered job list without running anything.
	Plan(opts domain.IngestOptions) ([]domain.IngestJob, error)

	// Run ingests every planned job and returns the full report.
	// The error wraps domain.ErrIngestFailed when any job failed.
	Run(ctx context.Context, opts domain.IngestOptions, progress ProgressFunc) (*domain.IngestReport, error)
}
