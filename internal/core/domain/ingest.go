package domain

import "time"

// MaxIngestTextBytes is the largest text accepted by IngestText.
const MaxIngestTextBytes = 10 * 1024 * 1024

// DefaultChunkingStrategy is used when no strategy (or "auto") is requested.
const DefaultChunkingStrategy = "recursive"

// ChunkingStrategies lists the strategies the service understands.
// "auto" maps to DefaultChunkingStrategy.
var ChunkingStrategies = []string{
	"auto", "recursive", "markdown", "semantic", "character", "hierarchical", "transcript",
}

// ResolveChunkingStrategy maps "auto" and "" to the default strategy.
func ResolveChunkingStrategy(s string) string {
	if s == "" || s == "auto" {
		return DefaultChunkingStrategy
	}
	return s
}

// JobState is the lifecycle state of one ingestion job.
type JobState string

const (
	JobPending             JobState = "pending"
	JobLoading             JobState = "loading"
	JobLoaded              JobState = "loaded"
	JobSubmitting          JobState = "submitting"
	JobLoadFailed          JobState = "load_failed"
	JobSubmitFailed        JobState = "submit_failed"
	JobCommitted           JobState = "committed"
	JobValidated           JobState = "validated"
	JobSkippedNoLoader     JobState = "skipped_no_loader"
	JobSkippedEmpty        JobState = "skipped_empty"
	JobSkippedDueToFailure JobState = "skipped_due_to_failure"
)

var jobTransitions = map[JobState][]JobState{
	JobPending:    {JobLoading, JobSkippedNoLoader, JobSkippedDueToFailure},
	JobLoading:    {JobLoadFailed, JobLoaded},
	JobLoaded:     {JobValidated, JobSubmitting, JobSkippedEmpty},
	JobSubmitting: {JobSubmitFailed, JobCommitted},
}

// CanTransition reports whether moving from s to next is allowed.
func (s JobState) CanTransition(next JobState) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s JobState) IsTerminal() bool {
	_, ok := jobTransitions[s]
	return !ok
}

// IsError reports whether the state is an error terminal state.
func (s JobState) IsError() bool {
	return s == JobLoadFailed || s == JobSubmitFailed
}

// IsSkipped reports whether the job was skipped without an error.
func (s JobState) IsSkipped() bool {
	return s == JobSkippedNoLoader || s == JobSkippedEmpty || s == JobSkippedDueToFailure
}

// IngestJob is one file to ingest. It is consumed exactly once by one worker.
type IngestJob struct {
	// Index is the position of the job in expansion order.
	Index int

	SourcePath string
	Namespace  string
	Metadata   map[string]any
}

// IngestResult is the terminal outcome of one job.
type IngestResult struct {
	Job   IngestJob
	State JobState
	Err   error

	// Loader is the name of the loader that handled the file, if any.
	Loader string

	DocumentID string
	Chunks     int
	RequestID  string
	Duration   time.Duration
}

// IngestOptions configures one orchestration run.
type IngestOptions struct {
	// Paths are files or directories to ingest.
	Paths []string

	// Pattern filters directory entries by base name. Defaults to "*".
	Pattern   string
	Recursive bool
	Namespace string

	// Workers is clamped to [MinWorkers, MaxWorkers].
	Workers int

	SkipErrors bool
	DryRun     bool

	ChunkingStrategy string
	Metadata         map[string]any
	PrependMetadata  []string

	// BasePath makes source_path metadata relative when files live under it.
	BasePath string
}

// IngestCounts aggregates terminal states.
type IngestCounts struct {
	Submitted int
	Committed int
	Validated int
	Failed    int
	Skipped   int
}

// Balanced reports whether every submitted job reached a counted terminal state.
func (c IngestCounts) Balanced() bool {
	return c.Committed+c.Validated+c.Failed+c.Skipped == c.Submitted
}

// IngestReport is the full outcome of an orchestration run.
type IngestReport struct {
	// Results holds one entry per job, ordered by job index.
	Results []IngestResult

	Counts      IngestCounts
	TotalChunks int
	Namespace   string
	DryRun      bool
	Duration    time.Duration
}

// Failures returns the results that ended in an error state.
func (r *IngestReport) Failures() []IngestResult {
	var out []IngestResult
	for i := range r.Results {
		if r.Results[i].State.IsError() {
			out = append(out, r.Results[i])
		}
	}
	return out
}

// CountState returns how many results ended in state s.
func (r *IngestReport) CountState(s JobState) int {
	n := 0
	for i := range r.Results {
		if r.Results[i].State == s {
			n++
		}
	}
	return n
}
