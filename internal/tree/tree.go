// Package tree flattens a document request tree into generation jobs and
// reconciles job outcomes back onto the tree.
package tree

import (
	"errors"
	"fmt"

	"github.com/agentic-research/docforge/api"
	"github.com/agentic-research/docforge/internal/docgen"
)

var (
	// ErrEmptyGroup reports an output group that declares no composition
	// items.
	ErrEmptyGroup = errors.New("output group has no composition items")
	// ErrMissingData reports a template item with no bindings to render
	// with.
	ErrMissingData = errors.New("template item missing resource data")
	// ErrMismatch reports a request tree and a result set that do not
	// line up.
	ErrMismatch = errors.New("request tree and results out of step")
)

// Flatten walks req's output groups in order and returns one job per
// template item, in traversal order. Items carrying any other type tag
// yield no job. Structural defects fail the whole request before any job
// runs: an empty group or a template item without bindings rejects the
// request outright rather than producing a partial batch.
func Flatten(req *api.Request, assets *AssetExtractor) ([]docgen.Job, error) {
	var jobs []docgen.Job
	for gi, group := range req.Outputs {
		if len(group.Composition) == 0 {
			return nil, fmt.Errorf("output group %d: %w", gi, ErrEmptyGroup)
		}
		for ii, item := range group.Composition {
			if item.Type != api.ItemTypeTemplate {
				continue
			}
			res := itemResource(item)
			if res == nil || res.Data == nil {
				return nil, fmt.Errorf("group %d item %d: %w", gi, ii, ErrMissingData)
			}
			data, bin := assets.Extract(res.Data)
			jobs = append(jobs, docgen.Job{
				Address:      res.Location,
				OutputFormat: res.OutputFormat,
				Data:         data,
				Assets:       bin,
				Persist:      res.Persist,
			})
		}
	}
	return jobs, nil
}

// Reconcile writes each outcome's location onto the matching template
// item's result slot, mirroring Flatten's traversal order. The tree is
// mutated only when the outcome count matches its template item count;
// on mismatch in either direction it is returned untouched.
func Reconcile(req *api.Request, outcomes []docgen.Outcome) error {
	want := 0
	for _, group := range req.Outputs {
		for _, item := range group.Composition {
			if item.Type == api.ItemTypeTemplate {
				want++
			}
		}
	}
	if want != len(outcomes) {
		return fmt.Errorf("%w: tree has %d template items, got %d outcomes", ErrMismatch, want, len(outcomes))
	}

	next := 0
	for gi := range req.Outputs {
		comp := req.Outputs[gi].Composition
		for ii := range comp {
			if comp[ii].Type != api.ItemTypeTemplate {
				continue
			}
			if comp[ii].Metadata == nil {
				comp[ii].Metadata = &api.ItemMeta{}
			}
			if comp[ii].Metadata.Result == nil {
				comp[ii].Metadata.Result = &api.ResultRef{}
			}
			comp[ii].Metadata.Result.Location = outcomes[next].Location()
			next++
		}
	}
	return nil
}

// Locations returns every template item's reconciled location, in
// traversal order. Items not yet reconciled contribute an empty string.
func Locations(req *api.Request) []string {
	var locs []string
	for _, group := range req.Outputs {
		for _, item := range group.Composition {
			if item.Type != api.ItemTypeTemplate {
				continue
			}
			loc := ""
			if item.Metadata != nil && item.Metadata.Result != nil {
				loc = item.Metadata.Result.Location
			}
			locs = append(locs, loc)
		}
	}
	return locs
}

func itemResource(item api.CompositionItem) *api.Resource {
	if item.Metadata == nil {
		return nil
	}
	return item.Metadata.Resource
}
