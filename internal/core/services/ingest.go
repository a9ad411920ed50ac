package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driven"
	"github.com/custodia-labs/stache-cli/internal/core/ports/driving"
	"github.com/custodia-labs/stache-cli/internal/logger"
)

// Ensure IngestOrchestrator implements the interface.
var _ driving.IngestOrchestrator = (*IngestOrchestrator)(nil)

// IngestOrchestrator loads files and submits them through a bounded worker pool.
type IngestOrchestrator struct {
	loaders   driven.LoaderRegistry
	enrichers driven.EnrichmentPipeline
	newClient driving.ClientFactory
}

// NewIngestOrchestrator creates an orchestrator. enrichers may be nil.
// newClient is called at most once per worker and never during a dry run.
func NewIngestOrchestrator(
	loaders driven.LoaderRegistry,
	enrichers driven.EnrichmentPipeline,
	newClient driving.ClientFactory,
) *IngestOrchestrator {
	return &IngestOrchestrator{
		loaders:   loaders,
		enrichers: enrichers,
		newClient: newClient,
	}
}

// Plan expands paths into the ordered job list. Missing paths fail before
// anything is loaded.
func (o *IngestOrchestrator) Plan(opts domain.IngestOptions) ([]domain.IngestJob, error) {
	return expandPaths(opts)
}

// Run ingests every planned job. Results are delivered to progress one at a
// time from a single goroutine. Unless SkipErrors is set, the first failure
// stops workers from starting further jobs; those are reported as
// SkippedDueToFailure while jobs already running finish normally.
func (o *IngestOrchestrator) Run(
	ctx context.Context,
	opts domain.IngestOptions,
	progress driving.ProgressFunc,
) (*domain.IngestReport, error) {
	start := time.Now()

	jobs, err := o.Plan(opts)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{
		Results:   make([]domain.IngestResult, len(jobs)),
		Namespace: opts.Namespace,
		DryRun:    opts.DryRun,
	}
	if len(jobs) == 0 {
		return report, nil
	}

	workers := domain.ClampWorkers(opts.Workers)
	if workers > len(jobs) {
		workers = len(jobs)
	}
	logger.Debug("ingesting %d files with %d workers (dry run: %v)", len(jobs), workers, opts.DryRun)

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		logger.Error("ingest worker panicked: %v", p)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "create worker pool")
	}
	defer pool.Release()

	queue := make(chan domain.IngestJob, len(jobs))
	for _, job := range jobs {
		queue <- job
	}
	close(queue)

	// Written only by the aggregator below; workers read it before each job.
	var stop atomic.Bool
	results := make(chan jobOutcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &ingestWorker{orchestrator: o, opts: opts, ack: make(chan struct{}, 1)}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			w.run(ctx, queue, results, &stop)
		}); err != nil {
			wg.Done()
			logger.Error("submit ingest worker: %v", err)
		}
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	received := make([]bool, len(jobs))
	for out := range results {
		res := out.result
		received[res.Job.Index] = true
		report.Results[res.Job.Index] = res
		if res.State.IsError() && !opts.SkipErrors {
			stop.Store(true)
		}
		if progress != nil {
			progress(res)
		}
		out.ack <- struct{}{}
	}

	// Jobs left behind by a worker that never started.
	for i, ok := range received {
		if !ok {
			report.Results[i] = domain.IngestResult{
				Job:   jobs[i],
				State: domain.JobSkippedDueToFailure,
				Err:   errors.New("no worker available"),
			}
		}
	}

	report.Counts = countResults(report.Results)
	for i := range report.Results {
		report.TotalChunks += report.Results[i].Chunks
	}
	report.Duration = time.Since(start)

	if report.Counts.Failed > 0 {
		return report, errors.Wrapf(domain.ErrIngestFailed, "%d of %d files failed", report.Counts.Failed, report.Counts.Submitted)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func countResults(results []domain.IngestResult) domain.IngestCounts {
	counts := domain.IngestCounts{Submitted: len(results)}
	for i := range results {
		switch s := results[i].State; {
		case s == domain.JobCommitted:
			counts.Committed++
		case s == domain.JobValidated:
			counts.Validated++
		case s.IsError():
			counts.Failed++
		case s.IsSkipped():
			counts.Skipped++
		}
	}
	return counts
}

// jobOutcome carries a result to the aggregator. The worker waits on ack
// so it sees the stop flag the aggregator set for that result.
type jobOutcome struct {
	result domain.IngestResult
	ack    chan<- struct{}
}

// ingestWorker processes jobs from the shared queue with its own client.
type ingestWorker struct {
	orchestrator *IngestOrchestrator
	opts         domain.IngestOptions
	client       driving.KnowledgeBase
	ack          chan struct{}
}

func (w *ingestWorker) run(ctx context.Context, queue <-chan domain.IngestJob, results chan<- jobOutcome, stop *atomic.Bool) {
	defer w.close()
	for job := range queue {
		var res domain.IngestResult
		if stop.Load() || ctx.Err() != nil {
			res = skippedResult(job)
		} else {
			res = w.process(ctx, job)
		}
		results <- jobOutcome{result: res, ack: w.ack}
		<-w.ack
	}
}

func (w *ingestWorker) close() {
	if w.client == nil {
		return
	}
	if err := w.client.Close(); err != nil {
		logger.Debug("close ingest client: %v", err)
	}
}

// kb returns the worker's client, creating it on first use.
func (w *ingestWorker) kb(ctx context.Context) (driving.KnowledgeBase, error) {
	if w.client != nil {
		return w.client, nil
	}
	if w.orchestrator.newClient == nil {
		return nil, errors.New("no client factory configured")
	}
	c, err := w.orchestrator.newClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create client")
	}
	w.client = c
	return c, nil
}

func (w *ingestWorker) process(ctx context.Context, job domain.IngestJob) (res domain.IngestResult) {
	start := time.Now()
	t := &jobTracker{result: domain.IngestResult{Job: job, State: domain.JobPending}}
	defer func() {
		if p := recover(); p != nil {
			if t.result.State == domain.JobSubmitting {
				t.result.State = domain.JobSubmitFailed
			} else {
				t.result.State = domain.JobLoadFailed
			}
			t.result.Err = errors.Newf("panic while processing %s: %v", job.SourcePath, p)
		}
		t.result.Duration = time.Since(start)
		res = t.result
	}()

	name := filepath.Base(job.SourcePath)
	loader, ok := w.orchestrator.loaders.ResolveFile(name)
	if !ok {
		t.to(domain.JobSkippedNoLoader)
		return
	}
	t.result.Loader = loader.Name()

	t.to(domain.JobLoading)
	doc, err := loadFile(ctx, loader, job.SourcePath)
	if err != nil {
		t.fail(domain.JobLoadFailed, &domain.LoadError{Path: job.SourcePath, Loader: loader.Name(), Err: err})
		return
	}
	t.to(domain.JobLoaded)

	if strings.TrimSpace(doc.Text) == "" {
		t.to(domain.JobSkippedEmpty)
		return
	}

	text, metadata := doc.Text, doc.CloneMetadata()
	if w.orchestrator.enrichers != nil {
		text, metadata = w.orchestrator.enrichers.Apply(ctx, text, metadata)
	}
	metadata["source_path"] = sourcePath(job.SourcePath, w.opts.BasePath)
	metadata["filename"] = name
	for k, v := range job.Metadata {
		metadata[k] = v
	}

	if w.opts.DryRun {
		t.to(domain.JobValidated)
		return
	}

	t.to(domain.JobSubmitting)
	kb, err := w.kb(ctx)
	if err != nil {
		t.fail(domain.JobSubmitFailed, err)
		return
	}
	out, err := kb.IngestText(ctx, domain.IngestTextRequest{
		Text:             text,
		Namespace:        job.Namespace,
		Metadata:         metadata,
		ChunkingStrategy: w.opts.ChunkingStrategy,
		PrependMetadata:  w.opts.PrependMetadata,
	})
	t.result.RequestID = kb.LastRequestID()
	if err != nil {
		t.fail(domain.JobSubmitFailed, err)
		return
	}
	t.result.DocumentID = out.DocumentID()
	t.result.Chunks = out.Int("chunks_created")
	t.to(domain.JobCommitted)
	return
}

func loadFile(ctx context.Context, loader driven.Loader, path string) (*domain.LoadedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := loader.Load(ctx, f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("loader returned no document")
	}
	return doc, nil
}

func skippedResult(job domain.IngestJob) domain.IngestResult {
	t := &jobTracker{result: domain.IngestResult{Job: job, State: domain.JobPending}}
	t.to(domain.JobSkippedDueToFailure)
	return t.result
}

// jobTracker moves a result through the job state machine.
type jobTracker struct {
	result domain.IngestResult
}

func (t *jobTracker) to(next domain.JobState) {
	if !t.result.State.CanTransition(next) {
		panic(fmt.Sprintf("invalid job transition %s -> %s", t.result.State, next))
	}
	t.result.State = next
}

func (t *jobTracker) fail(next domain.JobState, err error) {
	t.to(next)
	t.result.Err = err
}
