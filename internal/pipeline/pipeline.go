// Package pipeline composes flattening, generation, and reconciliation
// into end-to-end processing of one document request tree.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/agentic-research/docforge/api"
	"github.com/agentic-research/docforge/internal/docgen"
	"github.com/agentic-research/docforge/internal/ledger"
	"github.com/agentic-research/docforge/internal/tree"
)

// Stage names the pipeline stage an error came from.
type Stage string

const (
	StageFlatten   Stage = "flatten"
	StageGenerate  Stage = "generate"
	StageReconcile Stage = "reconcile"
)

// StageError tags a failure with its pipeline stage so transports can map
// it onto their own status vocabulary.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// JobError names one failed generation job.
type JobError struct {
	Index   int
	Address string
	Err     error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %d (%s): %v", e.Index, e.Address, e.Err)
}
func (e *JobError) Unwrap() error { return e.Err }

// GenerationError aggregates every failed job of a batch. The batch always
// runs to completion first, so Failures is the complete set, not the first
// one hit.
type GenerationError struct {
	Failures []*JobError
}

func (e *GenerationError) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	return fmt.Sprintf("%d jobs failed", len(e.Failures))
}

// Unwrap exposes the individual job errors to errors.Is and errors.As.
func (e *GenerationError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Runner executes flattened jobs. *docgen.Generator satisfies it.
type Runner interface {
	RunAll(ctx context.Context, jobs []docgen.Job) []docgen.Result
}

// Recorder persists processed batches. *ledger.Ledger satisfies it.
type Recorder interface {
	Record(ctx context.Context, b ledger.Batch) error
}

// Pipeline runs document requests end to end.
type Pipeline struct {
	runner Runner
	assets *tree.AssetExtractor
	rec    Recorder // nil disables history
	now    func() time.Time
}

// New returns a Pipeline. rec may be nil to disable history recording.
func New(runner Runner, assets *tree.AssetExtractor, rec Recorder) *Pipeline {
	return &Pipeline{runner: runner, assets: assets, rec: rec, now: time.Now}
}

// Process flattens req, runs every job to completion, records the batch,
// and reconciles outcomes back onto the tree. On success req's template
// items all carry their result locations. On a generate failure the tree
// is left without locations and the returned StageError carries the
// complete failure set.
//
// History recording is best-effort: a ledger failure is logged, never
// surfaced.
func (p *Pipeline) Process(ctx context.Context, req *api.Request, source string) error {
	received := p.now()

	jobs, err := tree.Flatten(req, p.assets)
	if err != nil {
		return &StageError{Stage: StageFlatten, Err: err}
	}

	results := p.runner.RunAll(ctx, jobs)
	if len(results) != len(jobs) {
		return &StageError{
			Stage: StageReconcile,
			Err:   fmt.Errorf("%w: %d jobs, %d results", tree.ErrMismatch, len(jobs), len(results)),
		}
	}

	var failures []*JobError
	outcomes := make([]docgen.Outcome, len(results))
	for i, res := range results {
		outcomes[i] = res.Outcome
		if res.Err != nil {
			failures = append(failures, &JobError{Index: i, Address: jobs[i].Address, Err: res.Err})
		}
	}

	p.record(ctx, req, source, received, jobs, results)

	if len(failures) > 0 {
		return &StageError{Stage: StageGenerate, Err: &GenerationError{Failures: failures}}
	}

	if err := tree.Reconcile(req, outcomes); err != nil {
		return &StageError{Stage: StageReconcile, Err: err}
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, req *api.Request, source string, received time.Time, jobs []docgen.Job, results []docgen.Result) {
	if p.rec == nil {
		return
	}

	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}

	b := ledger.Batch{
		ID:         id,
		Source:     source,
		ReceivedAt: received,
		Documents:  make([]ledger.Document, len(jobs)),
	}
	for i, job := range jobs {
		d := ledger.Document{
			JobIndex: i,
			Address:  job.Address,
			Format:   job.OutputFormat,
			Status:   ledger.StatusOK,
		}
		if results[i].Err != nil {
			d.Status = ledger.StatusError
			d.Error = results[i].Err.Error()
		} else {
			d.Location = results[i].Outcome.Location()
		}
		b.Documents[i] = d
	}

	if err := p.rec.Record(ctx, b); err != nil {
		log.Printf("pipeline: record history for %s: %v", b.ID, err)
	}
}
