// Package docgen executes generation jobs: resolve the template, render
// through the format's engine, write a local artifact, and persist it on
// request.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/docforge/internal/render"
)

// ErrArtifact marks local artifact write failures.
var ErrArtifact = errors.New("artifact write failed")

// Job is one ready-to-render unit of work.
type Job struct {
	// Address of the template (tagged or local).
	Address string
	// OutputFormat as the client sent it; parsed case-insensitively
	// with a configured fallback.
	OutputFormat string
	// Data holds the variable bindings.
	Data map[string]any
	// Assets holds embedded binary payloads by name.
	Assets map[string][]byte
	// Persist requests upload to the document store.
	Persist bool
}

// Outcome is the result of one executed job.
type Outcome struct {
	// RawBytes of the generated document.
	RawBytes []byte
	// LocalPath of the artifact on this host.
	LocalPath string
	// PersistedLocation is set only when persistence was requested and
	// succeeded.
	PersistedLocation string
}

// Location returns the outcome's reconciled location: the persisted
// location when present, else the local artifact as a file@ address.
func (o Outcome) Location() string {
	if o.PersistedLocation != "" {
		return o.PersistedLocation
	}
	return "file@" + o.LocalPath
}

// Result pairs an outcome with its job's error, keeping per-job failures
// as values inside a batch.
type Result struct {
	Outcome Outcome
	Err     error
}

// Resolver turns a template address into a local file path.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (string, error)
}

// Persister uploads one artifact and returns its remote location.
type Persister interface {
	Persist(ctx context.Context, artifactPath, contentType string) (string, error)
}

// Generator runs jobs against a resolver, an engine registry, and an
// optional persister.
type Generator struct {
	resolver    Resolver
	engines     *render.Registry
	store       Persister // nil disables persistence
	artifactDir string
	workers     int
}

// New returns a Generator. workers bounds batch parallelism; values below
// one run jobs sequentially.
func New(resolver Resolver, engines *render.Registry, store Persister, artifactDir string, workers int) *Generator {
	if workers < 1 {
		workers = 1
	}
	return &Generator{
		resolver:    resolver,
		engines:     engines,
		store:       store,
		artifactDir: artifactDir,
		workers:     workers,
	}
}

// Run executes one job. Resolution and render failures are fatal to the
// job; a persistence failure only leaves the persisted location empty,
// the generated bytes and local artifact stand.
func (g *Generator) Run(ctx context.Context, job Job) (Outcome, error) {
	path, err := g.resolver.Resolve(ctx, job.Address)
	if err != nil {
		return Outcome{}, err
	}

	format := render.ParseFormat(job.OutputFormat, g.engines.Default())
	engine, err := g.engines.Engine(format)
	if err != nil {
		return Outcome{}, err
	}

	raw, err := engine.Render(ctx, path, render.Bindings{Data: job.Data, Assets: job.Assets})
	if err != nil {
		return Outcome{}, err
	}

	artifact, err := g.writeArtifact(raw, format)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{RawBytes: raw, LocalPath: artifact}
	if job.Persist {
		switch {
		case g.store == nil:
			log.Printf("docgen: persistence requested for %s but no store configured", job.Address)
		default:
			loc, err := g.store.Persist(ctx, artifact, format.MIME())
			if err != nil {
				log.Printf("docgen: %v", err) // best-effort: local artifact stands
			} else {
				out.PersistedLocation = loc
			}
		}
	}
	return out, nil
}

// RunAll executes jobs across a bounded worker pool. results[i] always
// corresponds to jobs[i] regardless of completion order: the slice is
// pre-sized and each worker writes its own index, never appending. Per-job
// failures land in Result.Err; the batch always runs every job to
// completion.
func (g *Generator) RunAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	var eg errgroup.Group
	eg.SetLimit(g.workers)
	for i, job := range jobs {
		eg.Go(func() error {
			out, err := g.Run(ctx, job)
			results[i] = Result{Outcome: out, Err: err}
			return nil
		})
	}
	_ = eg.Wait() // workers return nil; Wait only joins

	return results
}

func (g *Generator) writeArtifact(raw []byte, format render.Format) (string, error) {
	if err := os.MkdirAll(g.artifactDir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir %s: %w: %w", g.artifactDir, ErrArtifact, err)
	}
	id, err := uuid.NewV7() // time-sortable artifact names
	if err != nil {
		return "", fmt.Errorf("artifact name: %w: %w", ErrArtifact, err)
	}
	path := filepath.Join(g.artifactDir, id.String()+format.Ext())
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w: %w", path, ErrArtifact, err)
	}
	return path, nil
}
