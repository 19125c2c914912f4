// Package render turns a resolved template plus variable bindings into
// output bytes, one engine per output format.
//
// Engines are external collaborators behind a small interface; the
// registry that picks one is an explicit table built at startup.
package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrRender marks engine failures.
var ErrRender = errors.New("template rendering failed")

// Bindings is the data handed to an engine for one job.
type Bindings struct {
	// Data holds the variable bindings; nested maps and lists allowed.
	Data map[string]any
	// Assets holds embedded binary payloads (images) by name.
	Assets map[string][]byte
}

// Engine renders one template file with bindings into raw output bytes.
type Engine interface {
	Render(ctx context.Context, templatePath string, b Bindings) ([]byte, error)
}

// Registry maps formats to engines.
type Registry struct {
	engines map[Format]Engine
	def     Format
}

// NewRegistry returns an empty registry whose unregistered lookups fall
// back to def's engine.
func NewRegistry(def Format) *Registry {
	return &Registry{engines: make(map[Format]Engine), def: def}
}

// Register installs the engine for f.
func (r *Registry) Register(f Format, e Engine) { r.engines[f] = e }

// Default returns the fallback format.
func (r *Registry) Default() Format { return r.def }

// Engine returns the engine for f, falling back to the default format's
// engine when f has none registered.
func (r *Registry) Engine(f Format) (Engine, error) {
	if e, ok := r.engines[f]; ok {
		return e, nil
	}
	if e, ok := r.engines[r.def]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: no engine registered for format %q", ErrRender, f)
}
